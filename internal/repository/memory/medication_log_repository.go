package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/repository/specification"

	"github.com/patrickmn/go-cache"
)

// MedicationLogRepository keeps logs per session. It understands the session,
// medication, created_at ordering and pagination specifications.
type MedicationLogRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

func NewMedicationLogRepository(ttl time.Duration) *MedicationLogRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MedicationLogRepository{
		cache: cache.New(ttl, 10*time.Minute),
		now:   time.Now,
	}
}

func (r *MedicationLogRepository) Create(_ context.Context, log *entity.MedicationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.now()
	}
	var logs []*entity.MedicationLog
	if x, found := r.cache.Get(log.SessionId); found {
		logs = x.([]*entity.MedicationLog)
	}
	stored := *log
	logs = append(append([]*entity.MedicationLog(nil), logs...), &stored)
	r.cache.Set(log.SessionId, logs, cache.DefaultExpiration)
	return nil
}

func (r *MedicationLogRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.MedicationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query(specs), nil
}

func (r *MedicationLogRepository) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.query(specs))), nil
}

func (r *MedicationLogRepository) query(specs []specification.Specification) []*entity.MedicationLog {
	var candidates []*entity.MedicationLog
	session := ""
	for _, spec := range specs {
		if s, ok := spec.(specification.BySessionID); ok {
			session = s.SessionID
		}
	}
	if session != "" {
		if x, found := r.cache.Get(session); found {
			candidates = x.([]*entity.MedicationLog)
		}
	} else {
		for _, item := range r.cache.Items() {
			candidates = append(candidates, item.Object.([]*entity.MedicationLog)...)
		}
	}

	out := make([]*entity.MedicationLog, 0, len(candidates))
	for _, l := range candidates {
		if matches(l, specs) {
			c := *l
			out = append(out, &c)
		}
	}

	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			if s.Field == "created_at" {
				sort.SliceStable(out, func(i, j int) bool {
					if s.Desc {
						return out[i].CreatedAt.After(out[j].CreatedAt)
					}
					return out[i].CreatedAt.Before(out[j].CreatedAt)
				})
			}
		case specification.Pagination:
			out = paginate(out, s)
		}
	}
	return out
}

func matches(l *entity.MedicationLog, specs []specification.Specification) bool {
	for _, spec := range specs {
		if s, ok := spec.(specification.ByMedication); ok && !strings.EqualFold(l.Medication, s.Name) {
			return false
		}
	}
	return true
}

func paginate(logs []*entity.MedicationLog, p specification.Pagination) []*entity.MedicationLog {
	if p.Offset >= len(logs) {
		return logs[:0]
	}
	logs = logs[p.Offset:]
	if p.Limit > 0 && p.Limit < len(logs) {
		logs = logs[:p.Limit]
	}
	return logs
}
