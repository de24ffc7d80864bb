package port

import "github.com/dreschagin/infra-optimizer/internal/application/dto"

// NotificationService определяет интерфейс для отправки уведомлений (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет событие цикла всем подключенным клиентам
	Broadcast(event *dto.CycleEventDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
