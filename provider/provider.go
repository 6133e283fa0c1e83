package provider

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// IdentityProvider resolves an identity document against the issuing
// authority and returns the structured record it holds.
type IdentityProvider interface {
	// Lookup fetches the record for the given personal number and document
	// number. A missing record returns config.ErrIdentityNotFound; transport
	// faults return ordinary errors.
	Lookup(ctx context.Context, personalNumber, documentNumber string) (*IdentityRecord, error)
}

// IdentityRecord is one citizen record as served by the personalization
// endpoint.
type IdentityRecord struct {
	DocumentSeries string `json:"ps_ser"`
	DocumentNumber string `json:"ps_num"`
	PersonalNumber string `json:"pnfl"`
	Surname        string `json:"sname"`
	FirstName      string `json:"fname"`
	MiddleName     string `json:"mname"`
	BirthDate      string `json:"birth_date"`
	BirthPlace     string `json:"birth_place"`
	Nationality    string `json:"nationality"`
	Sex            string `json:"sex"`
	LiveStatus     string `json:"livestatus"`
	DocumentIssuer string `json:"doc_give_place"`
	DocumentBegin  string `json:"matches_date_begin_document"`
	DocumentEnd    string `json:"matches_date_end_document"`
	Photo          string `json:"photo"`
}

// PhotoBase64 returns the record photo as a data URL. The endpoint usually
// serves the photo without its data:image prefix.
func (r *IdentityRecord) PhotoBase64() string {
	if r.Photo == "" {
		return ""
	}
	if strings.HasPrefix(r.Photo, "data:image") {
		return r.Photo
	}
	return "data:image/jpeg;base64," + r.Photo
}

// FullName joins the record name parts in surname, first name, middle name
// order.
func (r *IdentityRecord) FullName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{r.Surname, r.FirstName, r.MiddleName} {
		if part == "" {
			continue
		}
		parts = append(parts, titleWord(part))
	}
	return strings.Join(parts, " ")
}

// IsAlive reports the civil live status of the record. An absent status
// counts as alive.
func (r *IdentityRecord) IsAlive() bool {
	return r.LiveStatus == "" || r.LiveStatus == "0"
}

// DocumentValid reports whether the document expiry date falls on or after
// the given time. Records with no parseable expiry date count as invalid.
func (r *IdentityRecord) DocumentValid(at time.Time) bool {
	end, err := time.Parse("2006-01-02", r.DocumentEnd)
	if err != nil {
		return false
	}
	return !end.Before(at.Truncate(24 * time.Hour))
}

func titleWord(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
