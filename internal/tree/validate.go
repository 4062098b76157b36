// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// ErrInvalidGraph is the sentinel wrapped by every *GraphError.
var ErrInvalidGraph = errors.New("invalid category graph")

// GraphError describes why a record set cannot form a forest.
type GraphError struct {
	Duplicates []uuid.UUID // ids that appear more than once
	Cycle      []uuid.UUID // ids along one parent cycle, first id repeated at the end
}

func (e *GraphError) Error() string {
	var parts []string
	if len(e.Duplicates) > 0 {
		ids := make([]string, len(e.Duplicates))
		for i, id := range e.Duplicates {
			ids[i] = id.String()
		}
		parts = append(parts, "duplicate id "+strings.Join(ids, ", "))
	}
	if len(e.Cycle) > 0 {
		ids := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			ids[i] = id.String()
		}
		parts = append(parts, "parent cycle "+strings.Join(ids, " -> "))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidGraph, strings.Join(parts, "; "))
}

func (e *GraphError) Unwrap() error { return ErrInvalidGraph }

// Validate reports duplicate ids and parent cycles. Dangling parent
// references are allowed; Build turns them into roots.
func Validate(records []models.Category) error {
	parents := make(map[uuid.UUID]*uuid.UUID, len(records))
	var gerr GraphError
	for _, r := range records {
		if _, dup := parents[r.ID]; dup {
			gerr.Duplicates = append(gerr.Duplicates, r.ID)
			continue
		}
		parents[r.ID] = r.ParentID
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[uuid.UUID]int, len(parents))

	for _, r := range records {
		if state[r.ID] != unvisited {
			continue
		}
		var chain []uuid.UUID
		cur := r.ID
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == visiting {
				start := indexOf(chain, cur)
				gerr.Cycle = append(append([]uuid.UUID{}, chain[start:]...), cur)
				break
			}
			state[cur] = visiting
			chain = append(chain, cur)

			parent, ok := parents[cur]
			if !ok || parent == nil {
				break
			}
			if _, known := parents[*parent]; !known {
				break
			}
			cur = *parent
		}
		for _, id := range chain {
			state[id] = done
		}
		if len(gerr.Cycle) > 0 {
			break
		}
	}

	if len(gerr.Duplicates) > 0 || len(gerr.Cycle) > 0 {
		return &gerr
	}
	return nil
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return 0
}
