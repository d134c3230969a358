package model

// Profile belongs to exactly one User through UserID.
type Profile struct {
	ID     int    `db:"id,primaryKey"`
	UserID int    `db:"user_id"`
	Bio    string `db:"bio"`
}
