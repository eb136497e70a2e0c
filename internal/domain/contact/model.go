package contact

import (
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

// Message is a note left through the public contact form.
type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type MessageInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Message string `json:"message" validate:"required"`
}

var messageFilters = db.Columns{
	"email": {Column: "email", Kind: db.KindString},
	"name":  {Column: "name", Kind: db.KindString},
}
