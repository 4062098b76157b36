// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType distinguishes multiple-choice from free-text questions.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeShortAnswer QuestionType = "short_answer"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionTypeMCQ || t == QuestionTypeShortAnswer
}

// StringList is a list of strings persisted as a JSONB array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("string list: unsupported source type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = out
	return nil
}

// Question is a single item of a paper. CorrectAnswer holds one entry for
// ordinary questions and several for multi-answer MCQs.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	PaperID       uuid.UUID    `json:"paper_id"`
	Type          QuestionType `json:"type"`
	QuestionText  string       `json:"question_text"`
	Options       StringList   `json:"options,omitempty"`
	CorrectAnswer StringList   `json:"correct_answer"`
	Explanation   *string      `json:"explanation,omitempty"`
	Position      int          `json:"position"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsMultiAnswer reports whether more than one option is accepted.
func (q *Question) IsMultiAnswer() bool {
	return len(q.CorrectAnswer) > 1
}

// Accepts reports whether answer is correct. Single answers must match
// exactly; multi-answer questions accept any listed entry.
func (q *Question) Accepts(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	return slices.Contains(q.CorrectAnswer, answer)
}

// CorrectAnswerText renders the accepted answers for display and prompts.
func (q *Question) CorrectAnswerText() string {
	return strings.Join(q.CorrectAnswer, ", ")
}
