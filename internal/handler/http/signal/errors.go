package signal

import (
	"errors"
	"time"

	"newsbot/internal/common/pagination"
	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

var (
	errInvalidHours    = errors.New("hours must be a positive integer")
	errInvalidMinScore = errors.New("min_score must be a number")
	errInvalidLimit    = errors.New("limit must be a positive integer")
)

func repositorySignalFilter(minScore float64, category string, sourceType entity.SourceType, since time.Time, params pagination.Params) repository.SignalFilter {
	return repository.SignalFilter{
		MinScore:   minScore,
		Category:   category,
		SourceType: sourceType,
		Since:      since,
		Limit:      params.Limit,
		Offset:     pagination.CalculateOffset(params.Page, params.Limit),
	}
}
