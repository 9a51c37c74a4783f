package models

import (
	"context"
	"errors"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/utils"
)

type Branch struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name" binding:"required"`
	City      string    `gorm:"size:100" json:"city"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBranch struct {
	Name string `json:"name" binding:"required"`
	City string `json:"city"`
}

func CreateBranch(ctx context.Context, input *NewBranch) (*Branch, error) {
	if err := utils.ValidateUnique[Branch](ctx, "name", input.Name, 0); err != nil {
		return nil, errors.New("branch name already exists")
	}

	branch := Branch{
		Name:     input.Name,
		City:     input.City,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func GetBranch(ctx context.Context, id int) (*Branch, error) {
	return utils.FetchModel[Branch](ctx, id)
}

func GetBranches(ctx context.Context) ([]*Branch, error) {
	return utils.FetchAllModels[Branch](ctx)
}
