package cache

// lruNode is a resident texture in the recency list.
type lruNode struct {
	name string
	size int64
	prev *lruNode
	next *lruNode
}

// lruList orders resident textures by last use. The head is the most
// recently used. It tracks the total size of its nodes and is not safe for
// concurrent use.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
	size int64
}

// pushFront inserts a new node as the most recently used.
func (l *lruList) pushFront(name string, size int64) *lruNode {
	n := &lruNode{name: name, size: size}
	l.link(n)
	l.len++
	l.size += size
	return n
}

// touch marks n as the most recently used.
func (l *lruList) touch(n *lruNode) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.link(n)
}

// remove drops n from the list.
func (l *lruList) remove(n *lruNode) {
	l.unlink(n)
	l.len--
	l.size -= n.size
}

// oldest returns the least recently used node, or nil.
func (l *lruList) oldest() *lruNode { return l.tail }

func (l *lruList) clear() { *l = lruList{} }

func (l *lruList) link(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
