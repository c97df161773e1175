package subsys

import (
	"sync"
	"time"
)

type stackItem struct {
	obj *Object
	req Request
}

// Stack remembers triggered requests per caller id so they can be undone in
// reverse order.
type Stack struct {
	mu    sync.Mutex
	items map[int][]stackItem
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{items: make(map[int][]stackItem)}
}

// PushAndStart records req for id and plays it on obj.
func (s *Stack) PushAndStart(id int, obj *Object, req Request, now time.Duration) bool {
	s.mu.Lock()
	s.items[id] = append(s.items[id], stackItem{obj: obj, req: req})
	s.mu.Unlock()
	return obj.Dispatch(req, now).Any()
}

// PopAndStart removes the newest request for id and plays it reversed.
// popped is false when id has nothing recorded; matched reports whether the
// reversed request found any template.
func (s *Stack) PopAndStart(id int, now time.Duration) (popped, matched bool) {
	s.mu.Lock()
	list := s.items[id]
	if len(list) == 0 {
		s.mu.Unlock()
		return false, false
	}
	it := list[len(list)-1]
	if len(list) == 1 {
		delete(s.items, id)
	} else {
		s.items[id] = list[:len(list)-1]
	}
	s.mu.Unlock()

	it.req.Direction = -it.req.Direction
	return true, it.obj.Dispatch(it.req, now).Any()
}

// Depth returns how many requests are recorded for id.
func (s *Stack) Depth(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[id])
}

// Forget drops every request recorded against obj, e.g. when it is removed.
func (s *Stack) Forget(obj *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, list := range s.items {
		kept := list[:0]
		for _, it := range list {
			if it.obj != obj {
				kept = append(kept, it)
			}
		}
		if len(kept) == 0 {
			delete(s.items, id)
		} else {
			s.items[id] = kept
		}
	}
}
