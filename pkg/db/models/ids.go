package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it empty, so inserts do not
// depend on a database-side default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
