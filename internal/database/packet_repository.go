package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PacketRepository provides database operations for the packet journal
type PacketRepository struct {
	db *gorm.DB
}

// NewPacketRepository creates a new repository instance
func NewPacketRepository(db *gorm.DB) *PacketRepository {
	return &PacketRepository{db: db}
}

// Insert journals one packet and returns its assigned ID.
func (r *PacketRepository) Insert(p *PacketRecord) error {
	if p == nil {
		return fmt.Errorf("packet cannot be nil")
	}
	if !p.IsValid() {
		return fmt.Errorf("packet is not valid: direction=%q, status=%q", p.Direction, p.Status)
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	return r.db.Create(p).Error
}

// SetStatus moves a journaled packet to its final status, recording the
// failure reason when there is one.
func (r *PacketRepository) SetStatus(id uint, status, detail string) error {
	return r.db.Model(&PacketRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"detail":     detail,
			"updated_at": time.Now(),
		}).Error
}

// Recent returns the newest records, most recent first.
func (r *PacketRepository) Recent(limit int) ([]PacketRecord, error) {
	var records []PacketRecord
	err := r.db.Order("id desc").Limit(limit).Find(&records).Error
	return records, err
}

// CountByStatus returns how many journaled packets carry the given status.
func (r *PacketRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&PacketRecord{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// Totals returns the packet count and summed payload bytes per direction.
func (r *PacketRepository) Totals(direction string) (count int64, bytes int64, err error) {
	type row struct {
		Count int64
		Bytes int64
	}
	var res row
	err = r.db.Model(&PacketRecord{}).
		Select("count(*) as count, coalesce(sum(length), 0) as bytes").
		Where("direction = ?", direction).
		Scan(&res).Error
	return res.Count, res.Bytes, err
}
