// Package journal records completed fills to PostgreSQL. Writes go through a
// bounded queue so a slow or absent database can never stall the engine; a
// full queue drops entries and counts them instead.
package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"stockfighter/pkg/exception"

	"github.com/yanun0323/logs"
	"gorm.io/gorm"
)

// Entry is one executed fill attributed to a closed order.
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   int       `gorm:"index"`
	Venue     string    `gorm:"size:32"`
	Symbol    string    `gorm:"size:32;index"`
	Direction string    `gorm:"size:8"`
	Price     int       `gorm:""`
	Qty       int       `gorm:""`
	FilledAt  time.Time `gorm:""`
	CreatedAt time.Time `gorm:""`
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (Entry) TableName() string {
	return "fills"
}

// Journal owns the queue and the single writer goroutine.
type Journal struct {
	db      *gorm.DB
	ch      chan Entry
	closed  atomic.Bool
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// New migrates the fills table and starts the writer.
func New(db *gorm.DB, queueSize int) (*Journal, error) {
	if db == nil {
		return nil, exception.ErrJournalNilDB
	}
	if queueSize <= 0 {
		return nil, exception.ErrJournalQueueSize
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}

	j := &Journal{
		db: db,
		ch: make(chan Entry, queueSize),
	}
	j.wg.Add(1)
	go j.run()
	return j, nil
}

// Record enqueues entries without blocking. Entries beyond the queue capacity
// are dropped and counted.
func (j *Journal) Record(entries ...Entry) {
	if j == nil {
		return
	}
	if j.closed.Load() {
		j.dropped.Add(uint64(len(entries)))
		return
	}
	for _, entry := range entries {
		select {
		case j.ch <- entry:
		default:
			j.dropped.Add(1)
		}
	}
}

// Dropped reports how many entries were discarded because the queue was full
// or the journal was closed.
func (j *Journal) Dropped() uint64 {
	if j == nil {
		return 0
	}
	return j.dropped.Load()
}

// Close drains the queue and stops the writer.
func (j *Journal) Close() {
	if j == nil {
		return
	}
	if !j.closed.CompareAndSwap(false, true) {
		return
	}
	close(j.ch)
	j.wg.Wait()
	if dropped := j.dropped.Load(); dropped > 0 {
		logs.Warnf("journal: dropped %d entries", dropped)
	}
}

func (j *Journal) run() {
	defer j.wg.Done()
	for entry := range j.ch {
		if err := j.db.Create(&entry).Error; err != nil {
			logs.Errorf("journal: insert fill, order: %d, err: %+v", entry.OrderID, err)
		}
	}
}
