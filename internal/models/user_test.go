package models

import "testing"

// TestUserIsAdmin verifies that IsAdmin returns true only for the admin role.
func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{name: "admin role", role: RoleAdmin, want: true},
		{name: "user role", role: RoleUser, want: false},
		{name: "empty role", role: Role(""), want: false},
		{name: "lowercase admin", role: Role("admin"), want: false},
		{name: "uppercase ADMIN", role: Role("ADMIN"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role}
			got := u.IsAdmin()
			if got != tt.want {
				t.Errorf("User{Role: %q}.IsAdmin() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

// TestTestResultPercentage covers the zero-question guard and rounding down.
func TestTestResultPercentage(t *testing.T) {
	tests := []struct {
		name  string
		score int
		total int
		want  int
	}{
		{name: "no questions", score: 0, total: 0, want: 0},
		{name: "perfect", score: 5, total: 5, want: 100},
		{name: "two of three", score: 2, total: 3, want: 66},
		{name: "none correct", score: 0, total: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TestResult{Score: tt.score, TotalQuestions: tt.total}
			if got := r.Percentage(); got != tt.want {
				t.Errorf("Percentage() = %d, want %d", got, tt.want)
			}
			if got := r.Incorrect(); got != tt.total-tt.score {
				t.Errorf("Incorrect() = %d, want %d", got, tt.total-tt.score)
			}
		})
	}
}
