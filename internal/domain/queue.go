package domain

// LoopMode cicla off → track → queue → off.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopOff:
		return LoopTrack
	case LoopTrack:
		return LoopQueue
	}
	return LoopOff
}

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	}
	return "off"
}

// DefaultHistorySize es cuántos tracks recordamos para "back".
const DefaultHistorySize = 50

// Queue es el estado de reproducción de un guild. No es thread-safe: el PlayerService la protege.
type Queue struct {
	Current  *QueueItem
	Upcoming []QueueItem
	// Previous: el más reciente al final.
	Previous    []QueueItem
	Loop        LoopMode
	HistorySize int
}

func NewQueue() *Queue {
	return &Queue{HistorySize: DefaultHistorySize}
}

func (q *Queue) Len() int { return len(q.Upcoming) }

// Add inserta en position (0 = al frente); fuera de rango o negativo = al final. Devuelve la
// posición final.
func (q *Queue) Add(item QueueItem, position int) int {
	if position < 0 || position >= len(q.Upcoming) {
		q.Upcoming = append(q.Upcoming, item)
		return len(q.Upcoming) - 1
	}
	q.Upcoming = append(q.Upcoming, QueueItem{})
	copy(q.Upcoming[position+1:], q.Upcoming[position:])
	q.Upcoming[position] = item
	return position
}

// RemoveAt saca el elemento i de Upcoming.
func (q *Queue) RemoveAt(i int) (QueueItem, bool) {
	if i < 0 || i >= len(q.Upcoming) {
		return QueueItem{}, false
	}
	item := q.Upcoming[i]
	q.Upcoming = append(q.Upcoming[:i], q.Upcoming[i+1:]...)
	return item, true
}

// RemoveTrack saca la última aparición de encoded pedida por requester (la más reciente es la que
// agregó la sesión de búsqueda).
func (q *Queue) RemoveTrack(encoded, requesterID string) bool {
	for i := len(q.Upcoming) - 1; i >= 0; i-- {
		it := q.Upcoming[i]
		if it.Track.Encoded == encoded && (requesterID == "" || it.RequesterID == requesterID) {
			q.RemoveAt(i)
			return true
		}
	}
	return false
}

// Clear vacía Upcoming y devuelve cuántos había.
func (q *Queue) Clear() int {
	n := len(q.Upcoming)
	q.Upcoming = nil
	return n
}

// Shuffle mezcla Upcoming con la función swap de rand (Fisher-Yates por dentro).
func (q *Queue) Shuffle(shuffle func(n int, swap func(i, j int))) {
	shuffle(len(q.Upcoming), func(i, j int) {
		q.Upcoming[i], q.Upcoming[j] = q.Upcoming[j], q.Upcoming[i]
	})
}

// Advance se llama cuando el track actual terminó solo: respeta loop track y loop queue.
func (q *Queue) Advance() *QueueItem {
	if q.Loop == LoopTrack && q.Current != nil {
		return q.Current
	}
	return q.next()
}

// Skip pasa al siguiente ignorando loop track (loop queue sigue rotando).
func (q *Queue) Skip() *QueueItem { return q.next() }

func (q *Queue) next() *QueueItem {
	if cur := q.Current; cur != nil {
		q.retire(*cur)
		if q.Loop == LoopQueue {
			again := *cur
			again.FromHistory = false
			q.Upcoming = append(q.Upcoming, again)
		}
		q.Current = nil
	}
	if len(q.Upcoming) == 0 {
		return nil
	}
	head := q.Upcoming[0]
	q.Upcoming = q.Upcoming[1:]
	q.Current = &head
	return q.Current
}

// retire manda el track al historial salvo que venga de un "back".
func (q *Queue) retire(item QueueItem) {
	if item.FromHistory {
		return
	}
	q.Previous = append(q.Previous, item)
	limit := q.HistorySize
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	if over := len(q.Previous) - limit; over > 0 {
		q.Previous = append([]QueueItem(nil), q.Previous[over:]...)
	}
}

// ShiftPrevious saca el más reciente del historial.
func (q *Queue) ShiftPrevious() (QueueItem, bool) {
	n := len(q.Previous)
	if n == 0 {
		return QueueItem{}, false
	}
	item := q.Previous[n-1]
	q.Previous = q.Previous[:n-1]
	return item, true
}

// Back resucita el último track del historial: el actual vuelve al frente de Upcoming para poder
// volver a él, y el resucitado queda marcado para no re-entrar al historial.
func (q *Queue) Back() (*QueueItem, error) {
	prev, ok := q.ShiftPrevious()
	if !ok {
		return nil, ErrNoPrevious
	}
	if cur := q.Current; cur != nil {
		again := *cur
		again.FromHistory = false
		q.Add(again, 0)
	}
	prev.FromHistory = true
	q.Current = &prev
	return q.Current, nil
}

// DropBefore descarta todo lo anterior a index; el track en index queda como cabeza.
func (q *Queue) DropBefore(index int) (QueueItem, error) {
	if err := ValidateTrackIndex(index, len(q.Upcoming)); err != nil {
		return QueueItem{}, err
	}
	q.Upcoming = append([]QueueItem(nil), q.Upcoming[index:]...)
	return q.Upcoming[0], nil
}

// Jump = DropBefore + Skip.
func (q *Queue) Jump(index int) (*QueueItem, error) {
	if _, err := q.DropBefore(index); err != nil {
		return nil, err
	}
	return q.Skip(), nil
}

// Tracks devuelve una copia de Upcoming para renderizar sin tener el lock.
func (q *Queue) Tracks() []QueueItem {
	return append([]QueueItem(nil), q.Upcoming...)
}

// Reset deja la cola vacía (stop).
func (q *Queue) Reset() {
	q.Current = nil
	q.Upcoming = nil
	q.Previous = nil
	q.Loop = LoopOff
}
