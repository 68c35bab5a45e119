package grpcstore

import (
	"encoding/json"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
)

type storeRequest struct {
	Revision revision.Revision `json:"revision"`
	Context  string            `json:"context"`
}

type event struct {
	Hash        ident.Hash `json:"hash"`
	Description string     `json:"description"`
}

func decode[T any](b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
