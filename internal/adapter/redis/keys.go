package redis

import "github.com/pscheid92/worldnovel/internal/domain"

const (
	stateKey      = "novel:state"
	booksKey      = "novel:books"
	eventsChannel = "novel:events"
)

func balanceKey(id domain.Identity) string {
	return "novel:balance:" + string(id)
}

func grantKey(marker string) string {
	return "novel:grant:" + marker
}
