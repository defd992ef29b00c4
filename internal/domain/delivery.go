package domain

// Delivery — сырое сообщение из очереди.
type Delivery struct {
	// Body — байты сообщения в формате форматтера.
	Body []byte

	// Ack подтверждает обработку сообщения брокеру.
	// nil, если транспорт не поддерживает подтверждения.
	Ack func() error
}
