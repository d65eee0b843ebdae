package state

import "sync"

type Service int

const (
	Redis Service = iota
	Mailer
)

// State tracks which optional collaborators are still usable for this call.
type State struct {
	sync.RWMutex

	Redis  bool
	Mailer bool
}

func NewState() *State {
	return &State{
		Redis:  true,
		Mailer: true,
	}
}

func (s *State) Get(svc Service) bool {
	s.RLock()
	defer s.RUnlock()
	{
		switch svc {
		case Redis:
			return s.Redis

		case Mailer:
			return s.Mailer
		}
	}
	return false
}

func (s *State) Set(svc Service, state bool) {
	s.Lock()
	defer s.Unlock()
	{
		switch svc {
		case Redis:
			s.Redis = state

		case Mailer:
			s.Mailer = state
		}
	}
}
