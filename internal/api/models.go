package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp reads the backend's dates, which arrive with or without a zone.
// Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Time.MarshalJSON()
}

type StudentStatus string

const (
	StudentPending  StudentStatus = "PENDING"
	StudentApproved StudentStatus = "APPROVED"
	StudentRejected StudentStatus = "REJECTED"
)

type Student struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	StudentNumber string        `json:"studentNumber,omitempty"`
	UniversityID  string        `json:"universityId,omitempty"`
	CourseID      string        `json:"courseId,omitempty"`
	CourseName    string        `json:"courseName,omitempty"`
	Status        StudentStatus `json:"status"`
	CreatedAt     Timestamp     `json:"createdAt,omitempty"`
}

type StudentFilter struct {
	UniversityID string
	Status       StudentStatus `validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

type Course struct {
	ID           string `json:"id,omitempty"`
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description,omitempty" validate:"max=2000"`
	UniversityID string `json:"universityId" validate:"required"`
}

type University struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"required,max=200"`
	Acronym string `json:"acronym,omitempty" validate:"max=20"`
	Address string `json:"address,omitempty"`
	Status  string `json:"status,omitempty"`
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
)

type AdminAccount struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	Name           string        `json:"name,omitempty"`
	UniversityID   string        `json:"universityId"`
	UniversityName string        `json:"universityName,omitempty"`
	Status         AccountStatus `json:"status"`
}

type NewAdminAccount struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name,omitempty"`
	Password     string `json:"password" validate:"required,min=8"`
	UniversityID string `json:"universityId" validate:"required"`
}

type Career struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required,max=200"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// Question is one statement of the career assessment
type Question struct {
	ID        string   `json:"id,omitempty"`
	Statement string   `json:"statement" validate:"required,max=500"`
	Category  string   `json:"category,omitempty"`
	CareerIDs []string `json:"careerIds,omitempty"`
	Active    bool     `json:"active"`
}

type AnalyticsSummary struct {
	TotalStudents        int             `json:"totalStudents"`
	ApprovedStudents     int             `json:"approvedStudents"`
	PendingStudents      int             `json:"pendingStudents"`
	CompletedAssessments int             `json:"completedAssessments"`
	AverageScore         decimal.Decimal `json:"averageScore"`
}

// CompletionRate is the share of approved students who finished the
// assessment, as a percentage with one decimal
func (s AnalyticsSummary) CompletionRate() decimal.Decimal {
	return percentage(s.CompletedAssessments, s.ApprovedStudents)
}

type CareerShare struct {
	CareerID   string          `json:"careerId"`
	Career     string          `json:"career"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Record struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"studentId"`
	StudentName string          `json:"studentName"`
	CourseName  string          `json:"courseName,omitempty"`
	Score       decimal.Decimal `json:"score"`
	TopCareer   string          `json:"topCareer,omitempty"`
	CompletedAt Timestamp       `json:"completedAt"`
}

type ThemeSettings struct {
	UniversityID string `json:"universityId,omitempty"`
	ThemeName    string `json:"themeName" validate:"required,oneof=light dark redish purplelish brownish"`
	LogoURL      string `json:"logoUrl,omitempty" validate:"omitempty,url"`
}

func percentage(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1)
}

// fillShares computes each career's share of the total count
func fillShares(shares []CareerShare) {
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	for i := range shares {
		shares[i].Percentage = percentage(shares[i].Count, total)
	}
}
