package access

// Principal identifies an authenticated caller. A nil *Principal is an
// anonymous caller.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
