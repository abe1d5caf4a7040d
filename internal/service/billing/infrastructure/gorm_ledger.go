// internal/service/billing/infrastructure/gorm_ledger.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockbridge/internal/service/billing/domain"
)

// salePO 是销售记录的持久化对象。
type salePO struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	RequestID    string    `gorm:"type:varchar(64);uniqueIndex"`
	ItemName     string    `gorm:"type:varchar(128);index"`
	Category     string    `gorm:"type:varchar(64);index"`
	QuantitySold int       `gorm:"not null"`
	TotalAmount  float64   `gorm:"not null"`
	SaleDate     time.Time `gorm:"index"`
}

func (salePO) TableName() string { return "sales" }

func toPO(sale *domain.Sale) *salePO {
	return &salePO{
		ID:           sale.ID,
		RequestID:    sale.RequestID,
		ItemName:     sale.ItemName,
		Category:     sale.Category,
		QuantitySold: sale.QuantitySold,
		TotalAmount:  sale.TotalAmount,
		SaleDate:     sale.SaleDate,
	}
}

func toDomain(po *salePO) domain.Sale {
	return domain.Sale{
		ID:           po.ID,
		RequestID:    po.RequestID,
		ItemName:     po.ItemName,
		Category:     po.Category,
		QuantitySold: po.QuantitySold,
		TotalAmount:  po.TotalAmount,
		SaleDate:     po.SaleDate,
	}
}

// GormSaleLedger 是 MySQL 实现的销售账本。
type GormSaleLedger struct {
	db *gorm.DB
}

var _ domain.SaleLedger = (*GormSaleLedger)(nil)

func NewGormSaleLedger(dsn string) (*GormSaleLedger, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if err := db.AutoMigrate(&salePO{}); err != nil {
		return nil, fmt.Errorf("migrate sales table: %w", err)
	}
	return &GormSaleLedger{db: db}, nil
}

func (l *GormSaleLedger) Append(ctx context.Context, sale *domain.Sale) (int64, error) {
	po := toPO(sale)
	if err := l.db.WithContext(ctx).Create(po).Error; err != nil {
		return 0, fmt.Errorf("append sale: %w", err)
	}
	return po.ID, nil
}

func (l *GormSaleLedger) Get(ctx context.Context, id int64) (*domain.Sale, error) {
	var po salePO
	if err := l.db.WithContext(ctx).First(&po, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sale %d: %w", id, domain.ErrSaleNotFound)
		}
		return nil, err
	}
	sale := toDomain(&po)
	return &sale, nil
}

func (l *GormSaleLedger) Delete(ctx context.Context, id int64) error {
	result := l.db.WithContext(ctx).Delete(&salePO{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("sale %d: %w", id, domain.ErrSaleNotFound)
	}
	return nil
}

func (l *GormSaleLedger) All(ctx context.Context) ([]domain.Sale, error) {
	var pos []salePO
	if err := l.db.WithContext(ctx).Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(pos))
	for i := range pos {
		sales = append(sales, toDomain(&pos[i]))
	}
	return sales, nil
}

func (l *GormSaleLedger) TotalsByCategory(ctx context.Context) (map[string]float64, error) {
	type row struct {
		Category string
		Total    float64
	}
	var rows []row
	err := l.db.WithContext(ctx).
		Model(&salePO{}).
		Select("category, sum(total_amount) as total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(rows))
	for _, r := range rows {
		totals[r.Category] = r.Total
	}
	return totals, nil
}
