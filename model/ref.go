package model

import (
	"encoding/hex"
	"fmt"
)

// Ref addresses a record by kind and primary key
type Ref struct {
	Kind *Kind
	Key  []byte
}

func (r Ref) String() string {
	if r.Kind == nil {
		panic(fmt.Sprintf("Ref with an empty kind, key=%x", r.Key))
	}
	return fmt.Sprintf("%s: %s", r.Kind, hex.EncodeToString(r.Key))
}
