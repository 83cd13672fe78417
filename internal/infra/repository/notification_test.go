//go:build unit

package repository

import (
	"context"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// recordingTx は発行された SQL と引数を捕まえるだけの DBTX。
type recordingTx struct {
	sql  string
	args []any
}

func (t *recordingTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.sql = sql
	t.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (t *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestNotificationRepository_CreateJob_BindsAllPlaceholders(t *testing.T) {
	tx := &recordingTx{}
	repo := NewNotificationRepository()

	err := repo.CreateJob(context.Background(), tx, "email", "booking_created", []byte(`{}`), time.Now())
	require.NoError(t, err)

	placeholders := regexp.MustCompile(`\$\d+`).FindAllString(tx.sql, -1)
	require.Len(t, tx.args, len(placeholders))
}

// 通知は Notify の戻り値をログに流すだけなので、INSERT がスキーマとずれていても
// 実行時には気付けない。挿入先の列がマイグレーションに存在することをここで固定する。
func TestNotificationRepository_CreateJob_ColumnsExistInSchema(t *testing.T) {
	ddl, err := os.ReadFile("../../../migrations/0001_init.sql")
	require.NoError(t, err)

	table := tableDDL(t, string(ddl), "notification_jobs")

	m := regexp.MustCompile(`INSERT INTO notification_jobs \(([^)]+)\)`).FindStringSubmatch(createNotificationJobSQL)
	require.Len(t, m, 2)

	for _, col := range strings.Split(m[1], ",") {
		col = strings.TrimSpace(col)
		require.Regexp(t, `(?m)^\s+`+col+`\s`, table, "column %s missing from notification_jobs DDL", col)
	}
}

func tableDDL(t *testing.T, ddl, table string) string {
	t.Helper()
	start := strings.Index(ddl, "CREATE TABLE "+table+" (")
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(ddl[start:], ");")
	require.Greater(t, end, 0)
	return ddl[start : start+end]
}
