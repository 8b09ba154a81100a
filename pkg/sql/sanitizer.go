// Package sql provides the safety gate between model-generated SQL and the
// database. Nothing produced by the oracle may reach an executor without
// passing Sanitize first.
package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxCandidateLength caps the size of a candidate before any scanning is done.
// The oracle should never produce anything close to this; a longer string is a
// malfunction or an attempt to burn CPU on repeated regex scans.
const MaxCandidateLength = 100 * 1024

// RejectionReason classifies why a candidate was refused.
type RejectionReason string

const (
	ReasonEmptyInput          RejectionReason = "empty-input"
	ReasonCandidateTooLong    RejectionReason = "candidate-too-long"
	ReasonMultipleStatements  RejectionReason = "multiple-statements"
	ReasonSystemCatalogAccess RejectionReason = "system-catalog-access"
	ReasonBlockedKeyword      RejectionReason = "blocked-keyword"
	ReasonNotASelect          RejectionReason = "not-a-select"
	ReasonSuspiciousLiteral   RejectionReason = "suspicious-literal"
)

// Rejection is the error returned when a candidate fails validation.
// The message is safe to surface to callers verbatim.
type Rejection struct {
	Reason RejectionReason
	Token  string // offending keyword or identifier, when applicable
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonEmptyInput:
		return "empty SQL returned from model"
	case ReasonCandidateTooLong:
		return fmt.Sprintf("candidate SQL exceeds %d bytes", MaxCandidateLength)
	case ReasonMultipleStatements:
		return "multiple statements or semicolons not allowed"
	case ReasonSystemCatalogAccess:
		return "access to system catalogs is not allowed"
	case ReasonBlockedKeyword:
		return fmt.Sprintf("disallowed SQL operation detected: %s", r.Token)
	case ReasonNotASelect:
		return "only SELECT queries are allowed"
	case ReasonSuspiciousLiteral:
		return "string literal contains an injection pattern"
	default:
		return string(r.Reason)
	}
}

// AsRejection returns the *Rejection inside err, or nil.
func AsRejection(err error) *Rejection {
	if r, ok := err.(*Rejection); ok {
		return r
	}
	return nil
}

// blockedKeywords are scanned in this exact order; the first whole-word match
// is reported. Order is part of the contract so rejection reasons are
// deterministic and testable.
var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"REVOKE", "GRANT", "VACUUM", "ANALYZE", "LOCK", "SET", "SHOW", "COMMENT",
}

var systemCatalogs = []string{"pg_catalog", "information_schema"}

var (
	blockedRes       []*regexp.Regexp
	systemCatalogRes []*regexp.Regexp
	selectRe         = regexp.MustCompile(`^\s*\(*\s*(?i:SELECT)\b`)
	withRe           = regexp.MustCompile(`^(?i:WITH)\b`)
	limitRe          = regexp.MustCompile(`(?i)\bLIMIT\s+\d+\b`)
)

func init() {
	for _, kw := range blockedKeywords {
		blockedRes = append(blockedRes, regexp.MustCompile(`(?i)\b`+kw+`\b`))
	}
	for _, cat := range systemCatalogs {
		systemCatalogRes = append(systemCatalogRes, regexp.MustCompile(`(?i)\b`+cat+`\b`))
	}
}

// Sanitize validates a candidate SQL string produced by the oracle and returns
// the single statement that may be executed, with a LIMIT clause guaranteed to
// be present. maxRows is appended as "LIMIT maxRows" only when the candidate
// carries no LIMIT of its own; an existing LIMIT is left untouched even if it
// exceeds maxRows (the executor's row cap bounds the fetch regardless).
//
// Checks run in a fixed order and short-circuit on the first failure:
// empty input, length cap, semicolons, system catalogs, blocked keywords,
// SELECT/WITH prefix. The function is pure: no I/O, no state.
func Sanitize(candidate string, maxRows int) (string, error) {
	cleaned := strings.TrimSpace(candidate)
	if cleaned == "" {
		return "", &Rejection{Reason: ReasonEmptyInput}
	}

	if len(cleaned) > MaxCandidateLength {
		return "", &Rejection{Reason: ReasonCandidateTooLong}
	}

	// Any semicolon at all, including a trailing one. Erring toward
	// strictness: a trailing semicolon is cheap for the oracle to omit.
	if strings.ContainsRune(cleaned, ';') {
		return "", &Rejection{Reason: ReasonMultipleStatements}
	}

	for i, re := range systemCatalogRes {
		if re.MatchString(cleaned) {
			return "", &Rejection{Reason: ReasonSystemCatalogAccess, Token: systemCatalogs[i]}
		}
	}

	for i, re := range blockedRes {
		if re.MatchString(cleaned) {
			return "", &Rejection{Reason: ReasonBlockedKeyword, Token: blockedKeywords[i]}
		}
	}

	// Leading parentheses are allowed before SELECT (subquery/union forms).
	// WITH must open the statement itself to permit CTEs ending in a SELECT.
	if !selectRe.MatchString(cleaned) && !withRe.MatchString(cleaned) {
		return "", &Rejection{Reason: ReasonNotASelect}
	}

	if !limitRe.MatchString(cleaned) {
		cleaned = fmt.Sprintf("%s LIMIT %d", cleaned, maxRows)
	}

	return cleaned, nil
}
