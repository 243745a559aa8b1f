package delta

type Kind string

const (
	KindRetain Kind = "retain"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

type Op struct {
	Kind  Kind   `json:"kind"`            // "retain" / "insert" / "delete"
	Count int    `json:"count,omitempty"` // retain/delete length in characters
	Text  string `json:"text,omitempty"`  // inserted text
}

type Delta []Op

// Insert builds the delta that inserts text at a character offset.
func Insert(offset int, text string) Delta {
	d := make(Delta, 0, 2)
	if offset > 0 {
		d = append(d, Op{Kind: KindRetain, Count: offset})
	}
	return append(d, Op{Kind: KindInsert, Text: text})
}

// Delete builds the delta that removes count characters starting at offset.
func Delete(offset, count int) Delta {
	d := make(Delta, 0, 2)
	if offset > 0 {
		d = append(d, Op{Kind: KindRetain, Count: offset})
	}
	return append(d, Op{Kind: KindDelete, Count: count})
}

// "ops":[{"kind":"retain","count":5},{"kind":"insert","text":"Hello"}]
