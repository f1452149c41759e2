package feedback

import (
	"time"

	"newsbot/internal/domain/entity"
)

// DTO is the JSON projection of a Feedback row.
type DTO struct {
	RawItemID int64     `json:"raw_item_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func toDTO(f *entity.Feedback) DTO {
	return DTO{RawItemID: f.RawItemID, Kind: string(f.Kind), CreatedAt: f.CreatedAt}
}
