// internal/service/provisioning/infrastructure/doc_team_directory.go
package infrastructure

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/service/provisioning/port"
)

const collTeams = "teams"

// DocTeamDirectory 把团队也存进文档库。接入真正的 IAM 之前，
// 目录服务只需要名字和 ID。
type DocTeamDirectory struct {
	docs port.DocumentStore
}

func NewDocTeamDirectory(docs port.DocumentStore) *DocTeamDirectory {
	return &DocTeamDirectory{docs: docs}
}

func (d *DocTeamDirectory) Create(ctx context.Context, name string) (string, error) {
	id := uuid.New().String()
	_, err := d.docs.Create(ctx, collTeams, id, map[string]interface{}{
		"name":      name,
		"createdAt": time.Now(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (d *DocTeamDirectory) Delete(ctx context.Context, id string) error {
	return d.docs.Delete(ctx, collTeams, id)
}
