package cost

import (
	"context"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// SourceStatic - имя статического источника
const SourceStatic = "static"

// StaticSource возвращает фиксированный снимок стоимости.
// Используется, когда доступ к Cost Explorer не настроен.
type StaticSource struct {
	snapshot entity.CostSnapshot
}

// NewStaticSource создает источник со значениями по умолчанию
func NewStaticSource() *StaticSource {
	return &StaticSource{
		snapshot: entity.CostSnapshot{
			DailyCost:         45.67,
			MonthlyProjection: 1370.10,
			TopServices:       []string{"EC2", "RDS", "ALB"},
			Currency:          "USD",
			Source:            SourceStatic,
		},
	}
}

// GetCostSnapshot возвращает копию фиксированного снимка
func (s *StaticSource) GetCostSnapshot(_ context.Context) (entity.CostSnapshot, error) {
	snap := s.snapshot
	snap.TopServices = append([]string(nil), s.snapshot.TopServices...)
	return snap, nil
}

// Name возвращает имя источника
func (s *StaticSource) Name() string {
	return SourceStatic
}
