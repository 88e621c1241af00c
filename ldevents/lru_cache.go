package ldevents

import "container/list"

// lruCache is a fixed-capacity set of strings with least-recently-used eviction, used
// to track which user keys have already generated an index event.
type lruCache struct {
	capacity int
	list     *list.List
	elements map[string]*list.Element
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		capacity: capacity,
		list:     list.New(),
		elements: make(map[string]*list.Element),
	}
}

// add registers value as seen, returning true if it was already present (and moving it
// to most-recently-used), or false if it is new. A zero-capacity cache always reports
// values as new.
func (c *lruCache) add(value string) bool {
	if c.capacity <= 0 {
		return false
	}
	if el, ok := c.elements[value]; ok {
		c.list.MoveToFront(el)
		return true
	}
	el := c.list.PushFront(value)
	c.elements[value] = el
	if c.list.Len() > c.capacity {
		oldest := c.list.Back()
		if oldest != nil {
			c.list.Remove(oldest)
			delete(c.elements, oldest.Value.(string))
		}
	}
	return false
}

// clear discards all remembered values.
func (c *lruCache) clear() {
	c.list.Init()
	c.elements = make(map[string]*list.Element)
}
