package valueobject

// ImpactLevel - метка влияния рекомендованного действия.
// Модель отвечает метками на испанском: "alto", "medio", "bajo".
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "alto"
	ImpactMedium ImpactLevel = "medio"
	ImpactLow    ImpactLevel = "bajo"
)

// IsHigh сообщает, является ли метка единственным распознаваемым "высоким" значением.
// Сравнение точное и регистрозависимое: "Alto" и "ALTO" не считаются высокими.
func (l ImpactLevel) IsHigh() bool {
	return l == ImpactHigh
}

// IsKnown сообщает, входит ли метка в закрытый набор значений
func (l ImpactLevel) IsKnown() bool {
	switch l {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление метки
func (l ImpactLevel) String() string {
	return string(l)
}
