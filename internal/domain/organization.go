package domain

import "time"

// Organization 是租户隔离的边界，班次、用户和分配记录都只属于一个组织
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}
