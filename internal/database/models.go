package database

import (
	"fmt"
	"time"
)

// Packet directions.
const (
	DirectionTx = "tx"
	DirectionRx = "rx"
)

// Packet statuses. A transmit starts as pending and is marked with its
// final status when the completion callback arrives; received packets are
// journaled in their final state.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// PacketRecord is one journaled frame.
type PacketRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Direction string    `gorm:"index;size:2;not null" json:"direction"`
	Address   uint16    `json:"address"` // destination for tx, source for rx
	PAN       uint16    `json:"pan"`
	Length    int       `json:"length"` // payload bytes
	Status    string    `gorm:"index;size:10;not null" json:"status"`
	Detail    string    `gorm:"size:120" json:"detail,omitempty"` // failure reason, if any
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PacketRecord) TableName() string {
	return "packets"
}

// IsValid checks if the record has required fields
func (p PacketRecord) IsValid() bool {
	return (p.Direction == DirectionTx || p.Direction == DirectionRx) && p.Status != ""
}

// String returns a formatted string representation
func (p PacketRecord) String() string {
	result := fmt.Sprintf("%s %d bytes addr=%#04x [%s]", p.Direction, p.Length, p.Address, p.Status)
	if p.Detail != "" {
		result += fmt.Sprintf(" (%s)", p.Detail)
	}
	return result
}
