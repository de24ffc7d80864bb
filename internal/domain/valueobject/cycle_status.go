package valueobject

// CycleStatus описывает итог цикла оптимизации
type CycleStatus string

const (
	// CycleComplete - все этапы выполнены, данные собраны полностью
	CycleComplete CycleStatus = "complete"
	// CyclePartial - цикл дошел до конца, но часть категорий деградировала
	// или часть действий завершилась ошибкой
	CyclePartial CycleStatus = "partial"
	// CycleFailed - движок рекомендаций вернул ошибку, применение пропущено
	CycleFailed CycleStatus = "failed"
)

// String возвращает строковое представление статуса
func (s CycleStatus) String() string {
	return string(s)
}
