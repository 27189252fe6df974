// Package indexstore defines the registry of built indices.
package indexstore

import "docrag/internal/domain"

// Storage maps index ids to built indices.
type Storage interface {
	Put(index *domain.Index)
	Get(id string) (*domain.Index, bool)
	Delete(id string) bool
	Clear()
	Len() int
	IDs() []string
	// TextBytes is the total size of the original texts held.
	TextBytes() int64
}
