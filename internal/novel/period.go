package novel

import "github.com/pscheid92/worldnovel/internal/domain"

func requireInitializing(p domain.Period) error {
	if p != domain.PeriodInitializing {
		return domain.NewPeriodError(p, "addBook requires INITIALIZING")
	}
	return nil
}

func requireWriting(p domain.Period) error {
	if p != domain.PeriodWriting {
		return domain.NewPeriodError(p, "requires WRITING")
	}
	return nil
}

func requireNotInitializing(p domain.Period) error {
	if p == domain.PeriodInitializing {
		return domain.NewPeriodError(p, "voting disallowed while INITIALIZING")
	}
	return nil
}
