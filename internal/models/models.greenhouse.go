// FilePath: internal/models/models.greenhouse.go
package models

// Greenhouse is read-only reference data; provisioning happens out of band.
type Greenhouse struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
