// Package lookup ranks comparable sale records against a partial address for
// autofill. It only reads from its source.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50

	// Candidates fetched from the source before ranking
	candidatePool = 200
)

var ErrEmptyQuery = errors.New("query must not be empty")

// Match quality, best first
type Rank int

const (
	RankExact Rank = iota
	RankPrefix
	RankWordPrefix
	RankSubstring
	rankNone
)

func (r Rank) String() string {
	switch r {
	case RankExact:
		return "exact"
	case RankPrefix:
		return "prefix"
	case RankWordPrefix:
		return "word_prefix"
	case RankSubstring:
		return "substring"
	default:
		return "none"
	}
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type Source interface {
	SalesMatchingAddress(ctx context.Context, query string, limit int) ([]models.ComparableSale, error)
}

type Candidate struct {
	models.ComparableSale
	Match Rank `json:"match"`
}

type Service struct {
	source Source
	logger *logrus.Logger
}

func NewService(source Source, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{source: source, logger: logger}
}

// Lookup returns at most limit candidates ordered by match quality, then most
// recent sale date, then address.
func (s *Service) Lookup(ctx context.Context, query string, limit int) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit = clampLimit(limit)

	sales, err := s.source.SalesMatchingAddress(ctx, normalize(query), candidatePool)
	if err != nil {
		return nil, fmt.Errorf("failed to load lookup candidates: %w", err)
	}

	candidates := RankSales(query, sales)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.logger.WithFields(logrus.Fields{
		"query":   query,
		"matches": len(candidates),
	}).Debug("Address lookup")

	return candidates, nil
}

// RankSales scores sales against a query and sorts them. Sales that do not
// contain the query are dropped.
func RankSales(query string, sales []models.ComparableSale) []Candidate {
	q := normalize(query)
	candidates := make([]Candidate, 0, len(sales))
	for _, sale := range sales {
		rank := score(q, normalize(sale.Address))
		if rank == rankNone {
			continue
		}
		candidates = append(candidates, Candidate{ComparableSale: sale, Match: rank})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Match != b.Match {
			return a.Match < b.Match
		}
		if !a.SaleDate.Equal(b.SaleDate) {
			return a.SaleDate.After(b.SaleDate)
		}
		return a.Address < b.Address
	})
	return candidates
}

func score(query, address string) Rank {
	switch {
	case address == query:
		return RankExact
	case strings.HasPrefix(address, query):
		return RankPrefix
	}
	for _, word := range strings.Fields(address) {
		if strings.HasPrefix(word, query) {
			return RankWordPrefix
		}
	}
	// Multi-word queries can start mid-address
	if strings.Contains(" "+address, " "+query) {
		return RankWordPrefix
	}
	if strings.Contains(address, query) {
		return RankSubstring
	}
	return rankNone
}

func normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, ",", " "))
	return strings.Join(strings.Fields(s), " ")
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
