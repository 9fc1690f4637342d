package auth

// Principal is the authenticated caller as asserted by the external
// identity provider. The engine trusts it; it never verifies passwords
// or issues tokens itself.
type Principal struct {
	UserID uint
	Role   string
}
