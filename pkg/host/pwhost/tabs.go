package pwhost

import (
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/playwright-community/playwright-go"
)

// Badge is the toolbar badge recorded for a tab.
type Badge struct {
	Text  string
	Color string
}

// tab is one open page.
type tab struct {
	id       types.TabID
	page     playwright.Page
	scripted bool // content script attached to the current document
	badge    Badge
}

// tabSet assigns ids to pages and tracks activation order.
// It is not safe for concurrent use; Host guards it.
type tabSet struct {
	nextID types.TabID
	byID   map[types.TabID]*tab
	byPage map[playwright.Page]types.TabID
	order  []types.TabID // least to most recently activated
}

func newTabSet() *tabSet {
	return &tabSet{
		byID:   make(map[types.TabID]*tab),
		byPage: make(map[playwright.Page]types.TabID),
	}
}

// add registers page, or returns its existing tab. The new tab becomes active.
func (s *tabSet) add(page playwright.Page) (*tab, bool) {
	if id, ok := s.byPage[page]; ok {
		return s.byID[id], false
	}
	s.nextID++
	t := &tab{id: s.nextID, page: page}
	s.byID[t.id] = t
	s.byPage[page] = t.id
	s.order = append(s.order, t.id)
	return t, true
}

func (s *tabSet) get(id types.TabID) (*tab, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// activate moves id to the front of the activation order.
func (s *tabSet) activate(id types.TabID) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.order = append(without(s.order, id), id)
	return true
}

func (s *tabSet) remove(id types.TabID) (*tab, bool) {
	t, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	delete(s.byID, id)
	delete(s.byPage, t.page)
	s.order = without(s.order, id)
	return t, true
}

// active returns the most recently opened or activated tab.
func (s *tabSet) active() (*tab, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	return s.byID[s.order[len(s.order)-1]], true
}

func (s *tabSet) all() []*tab {
	out := make([]*tab, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func without(ids []types.TabID, id types.TabID) []types.TabID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
