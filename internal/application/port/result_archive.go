package port

import "context"

// ArchivedCycle - JSON-документ цикла и ключ, под которым он хранится
type ArchivedCycle struct {
	Key      string
	CycleID  string
	Status   string
	Document []byte
}

// ResultArchive хранит копии результатов циклов вне хоста (Port).
// Возвращает ссылку для чтения архивной копии.
type ResultArchive interface {
	Archive(ctx context.Context, cycle ArchivedCycle) (string, error)
}
