package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mickamy/hasone/internal/naming"
)

func TestCamelToSnake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"ID", "id"},
		{"Name", "name"},
		{"CreatedAt", "created_at"},
		{"UserID", "user_id"},
		{"HTTPServer", "http_server"},
		{"userProfile", "user_profile"},
		{"Address2Line", "address2_line"},
		{"A", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, naming.CamelToSnake(tt.input))
		})
	}
}

func TestForeignKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "parent_id", naming.ForeignKey("parent"))
	assert.Equal(t, "users_id", naming.ForeignKey("users"))
}
