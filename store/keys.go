package store

// Keys builds the Civil Memory key for each collection.
type Keys struct {
	Prefix string
}

func (k Keys) Health() string { return k.Prefix + ":health" }
func (k Keys) Users() string { return k.Prefix + ":users" }
func (k Keys) Projects() string { return k.Prefix + ":projects" }
func (k Keys) Chat(projectID string) string { return k.Prefix + ":chat:" + projectID }
func (k Keys) Documents(projectID string) string { return k.Prefix + ":documents:" + projectID }
func (k Keys) Research(projectID string) string { return k.Prefix + ":research:" + projectID }
func (k Keys) Notifications(userID string) string { return k.Prefix + ":notifications:" + userID }
func (k Keys) Summary(itemID string) string { return k.Prefix + ":summary:" + itemID }
