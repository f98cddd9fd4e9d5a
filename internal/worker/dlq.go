package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix prefixes the dead letter list of each source queue.
const DLQPrefix = "dlq:"

// DLQEntry is a job that exhausted its attempts, kept for manual replay.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Motivo        string          `json:"motivo"`
	FalhouEm      time.Time       `json:"falhou_em"`
	Tentativas    int             `json:"tentativas"`
}

func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, motivo string, tentativas int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Motivo:        motivo,
		FalhouEm:      time.Now().UTC(),
		Tentativas:    tentativas,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: falha ao serializar")
		return
	}
	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).RawJSON("payload", payload).Msg("dlq: falha ao gravar, job descartado")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("motivo", motivo).
		Int("tentativas", tentativas).
		Msg("dlq: job movido para a fila morta")
}

// DLQLength returns how many entries wait in a queue's DLQ.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
