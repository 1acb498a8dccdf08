// Package identity holds the signed-in principal.
package identity

// Identity is issued by the identity provider and never mutated locally.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
