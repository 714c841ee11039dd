package service

import (
	"sort"
	"strings"

	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/transport"
)

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 lead.ID,
		CompanyName:        lead.CompanyName,
		ContactName:        lead.ContactName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		Source:             lead.Source,
		Status:             string(lead.Status),
		TriageStatus:       lead.TriageStatus,
		DisqualifiedReason: lead.DisqualifiedReason,
		HandoverEligible:   lead.HandoverEligible,
		PoolPriority:       lead.PoolPriority,
		QualifiedAt:        lead.QualifiedAt,
		PooledAt:           lead.PooledAt,
		OwnerID:            lead.OwnerID,
		ClaimedAt:          lead.ClaimedAt,
		AccountID:          lead.AccountID,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func ToTargetResponse(target repository.Target) transport.TargetResponse {
	return transport.TargetResponse{
		ID:          target.ID,
		CompanyName: target.CompanyName,
		ContactName: target.ContactName,
		Email:       target.Email,
		Phone:       target.Phone,
		Converted:   target.Converted,
		ConvertedAt: target.ConvertedAt,
		AccountID:   target.AccountID,
		CreatedAt:   target.CreatedAt,
	}
}

// MergeMatches folds raw dedupe rows from multiple sources into one list,
// collapsing rows that name the same record and tagging each with the fields
// that matched the query. Ordering is stable: leads before accounts, then by
// name.
func MergeMatches(email, phone string, rows []repository.DuplicateMatch) []transport.DuplicateMatch {
	type key struct {
		entityType string
		id         string
	}

	index := make(map[key]int)
	merged := make([]transport.DuplicateMatch, 0, len(rows))

	for _, row := range rows {
		matchedOn := matchedFields(email, phone, row)
		if len(matchedOn) == 0 {
			continue
		}

		k := key{entityType: row.EntityType, id: row.ID.String()}
		if i, seen := index[k]; seen {
			merged[i].MatchedOn = unionFields(merged[i].MatchedOn, matchedOn)
			continue
		}

		index[k] = len(merged)
		merged = append(merged, transport.DuplicateMatch{
			EntityType: row.EntityType,
			ID:         row.ID,
			Name:       row.Name,
			Email:      row.Email,
			Phone:      row.Phone,
			MatchedOn:  matchedOn,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].EntityType != merged[j].EntityType {
			return merged[i].EntityType == "lead"
		}
		return merged[i].Name < merged[j].Name
	})
	return merged
}

func matchedFields(email, phone string, row repository.DuplicateMatch) []string {
	fields := make([]string, 0, 2)
	if email != "" && row.Email != nil && strings.EqualFold(*row.Email, email) {
		fields = append(fields, "email")
	}
	if phone != "" && row.Phone != nil && *row.Phone == phone {
		fields = append(fields, "phone")
	}
	return fields
}

func unionFields(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, f := range b {
		found := false
		for _, existing := range out {
			if existing == f {
				found = true
				break
			}
		}
		if !found {
			out = append(out, f)
		}
	}
	return out
}

func ToLeadNoteResponse(n repository.Note) transport.LeadNoteResponse {
	return transport.LeadNoteResponse{
		ID:        n.ID,
		LeadID:    n.LeadID,
		AuthorID:  n.AuthorID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}
