package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.GiveawayRepo    = (*Postgres)(nil)
	_ domain.ChannelRepo     = (*Postgres)(nil)
	_ domain.ParticipantRepo = (*Postgres)(nil)
	_ domain.SettingsRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const giveawayColumns = `token, name, description, type, owner_id, winners_count, ends_at, run_status, early_finish, created_at, finished_at`

func scanGiveaway(row pgx.Row) (domain.Giveaway, error) {
	var (
		g       domain.Giveaway
		kind    string
		created time.Time
	)
	err := row.Scan(&g.Token, &g.Name, &g.Description, &kind, &g.OwnerID, &g.WinnersCount, &g.EndsAt, &g.RunStatus, &g.EarlyFinish, &created, &g.FinishedAt)
	if err != nil {
		return domain.Giveaway{}, err
	}
	g.Type = domain.GiveawayType(kind)
	g.CreatedAt = created
	return g, nil
}

// CreateGiveaway сохраняет черновик розыгрыша.
func (p *Postgres) CreateGiveaway(ctx context.Context, g domain.Giveaway) (domain.Giveaway, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	created, err := scanGiveaway(p.pool.QueryRow(ctx, `
INSERT INTO giveaways (token, name, description, type, owner_id, winners_count, ends_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+giveawayColumns,
		g.Token, g.Name, g.Description, string(g.Type), g.OwnerID, g.WinnersCount, g.EndsAt.UTC()))
	metrics.ObserveNetworkRequest("postgres", "giveaways_insert", "giveaways", start, err)
	return created, err
}

// GetGiveaway возвращает розыгрыш по токену.
func (p *Postgres) GetGiveaway(ctx context.Context, token string) (domain.Giveaway, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	g, err := scanGiveaway(p.pool.QueryRow(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE token=$1`, token))
	metrics.ObserveNetworkRequest("postgres", "giveaways_get", "giveaways", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Giveaway{}, domain.ErrGiveawayNotFound
	}
	return g, err
}

// ListGiveaways возвращает розыгрыши владельца или все, если all=true.
func (p *Postgres) ListGiveaways(ctx context.Context, ownerID int64, all bool) ([]domain.Giveaway, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+giveawayColumns+`
FROM giveaways
WHERE $2 OR owner_id=$1
ORDER BY created_at DESC
LIMIT 50
`, ownerID, all)
	metrics.ObserveNetworkRequest("postgres", "giveaways_list", "giveaways", start, err)
	if err != nil {
		return nil, err
	}
	return collectGiveaways(rows)
}

// ListExpired возвращает активные розыгрыши, время которых истекло.
func (p *Postgres) ListExpired(ctx context.Context, now time.Time) ([]domain.Giveaway, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+giveawayColumns+`
FROM giveaways
WHERE run_status AND ends_at <= $1
ORDER BY ends_at
`, now.UTC())
	metrics.ObserveNetworkRequest("postgres", "giveaways_list_expired", "giveaways", start, err)
	if err != nil {
		return nil, err
	}
	return collectGiveaways(rows)
}

func collectGiveaways(rows pgx.Rows) ([]domain.Giveaway, error) {
	defer rows.Close()
	var out []domain.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Activate переводит черновик в активное состояние.
func (p *Postgres) Activate(ctx context.Context, token string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE giveaways SET run_status=true WHERE token=$1 AND NOT run_status AND finished_at IS NULL`, token)
	metrics.ObserveNetworkRequest("postgres", "giveaways_activate", "giveaways", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotModified
	}
	return nil
}

// MarkFinished атомарно снимает run_status и фиксирует время завершения.
func (p *Postgres) MarkFinished(ctx context.Context, token string, early bool, at time.Time) (domain.Giveaway, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	g, err := scanGiveaway(p.pool.QueryRow(ctx, `
UPDATE giveaways
SET run_status=false, early_finish=$2, finished_at=$3
WHERE token=$1 AND run_status
RETURNING `+giveawayColumns,
		token, early, at.UTC()))
	metrics.ObserveNetworkRequest("postgres", "giveaways_mark_finished", "giveaways", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Giveaway{}, domain.ErrNotModified
	}
	return g, err
}

// AddChannel привязывает канал к розыгрышу. Повторная привязка обновляет метаданные.
func (p *Postgres) AddChannel(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO giveaway_channels (channel_id, title, username, owner_id, giveaway_token, group_id)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (giveaway_token, channel_id) DO UPDATE
SET title=EXCLUDED.title, username=EXCLUDED.username, group_id=EXCLUDED.group_id
RETURNING id, post_id
`, ch.ChannelID, ch.Title, ch.Username, ch.OwnerID, ch.GiveawayToken, ch.GroupID).Scan(&ch.ID, &ch.PostID)
	metrics.ObserveNetworkRequest("postgres", "giveaway_channels_upsert", "giveaway_channels", start, err)
	return ch, err
}

const channelColumns = `id, channel_id, title, username, owner_id, giveaway_token, group_id, post_id`

func scanChannel(row pgx.Row) (domain.Channel, error) {
	var ch domain.Channel
	err := row.Scan(&ch.ID, &ch.ChannelID, &ch.Title, &ch.Username, &ch.OwnerID, &ch.GiveawayToken, &ch.GroupID, &ch.PostID)
	return ch, err
}

// ListChannels возвращает каналы розыгрыша в порядке привязки.
func (p *Postgres) ListChannels(ctx context.Context, token string) ([]domain.Channel, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+channelColumns+` FROM giveaway_channels WHERE giveaway_token=$1 ORDER BY id`, token)
	metrics.ObserveNetworkRequest("postgres", "giveaway_channels_list", "giveaway_channels", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// FindByDiscussionPost ищет канал по группе обсуждения и посту розыгрыша.
func (p *Postgres) FindByDiscussionPost(ctx context.Context, groupID int64, postID int) (domain.Channel, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	ch, err := scanChannel(p.pool.QueryRow(ctx, `
SELECT `+channelColumns+`
FROM giveaway_channels
WHERE group_id=$1 AND post_id=$2
ORDER BY id DESC
LIMIT 1
`, groupID, postID))
	metrics.ObserveNetworkRequest("postgres", "giveaway_channels_find_post", "giveaway_channels", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, domain.ErrChannelNotFound
	}
	return ch, err
}

// SetPost сохраняет ID опубликованного поста и группы обсуждения.
func (p *Postgres) SetPost(ctx context.Context, id int64, groupID int64, postID int) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE giveaway_channels SET group_id=$2, post_id=$3 WHERE id=$1`, id, groupID, postID)
	metrics.ObserveNetworkRequest("postgres", "giveaway_channels_set_post", "giveaway_channels", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

// AddParticipant регистрирует участника. Возвращает false при повторной регистрации.
func (p *Postgres) AddParticipant(ctx context.Context, part domain.Participant) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO giveaway_participants (giveaway_token, user_id, username, first_name)
SELECT $1, $2, $3, $4
WHERE EXISTS (SELECT 1 FROM giveaways WHERE token=$1 AND run_status)
ON CONFLICT (giveaway_token, user_id) DO NOTHING
`, part.GiveawayToken, part.UserID, part.Username, part.FirstName)
	metrics.ObserveNetworkRequest("postgres", "giveaway_participants_insert", "giveaway_participants", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IsParticipant проверяет, зарегистрирован ли пользователь.
func (p *Postgres) IsParticipant(ctx context.Context, token string, userID int64) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM giveaway_participants WHERE giveaway_token=$1 AND user_id=$2)`, token, userID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "giveaway_participants_exists", "giveaway_participants", start, err)
	return exists, err
}

// ListParticipants возвращает участников в порядке регистрации.
func (p *Postgres) ListParticipants(ctx context.Context, token string) ([]domain.Participant, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT seq, giveaway_token, user_id, username, first_name, joined_at
FROM giveaway_participants
WHERE giveaway_token=$1
ORDER BY seq
`, token)
	metrics.ObserveNetworkRequest("postgres", "giveaway_participants_list", "giveaway_participants", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Participant
	for rows.Next() {
		var part domain.Participant
		if err := rows.Scan(&part.Seq, &part.GiveawayToken, &part.UserID, &part.Username, &part.FirstName, &part.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, rows.Err()
}

// CountParticipants возвращает число участников.
func (p *Postgres) CountParticipants(ctx context.Context, token string) (int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var count int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM giveaway_participants WHERE giveaway_token=$1`, token).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "giveaway_participants_count", "giveaway_participants", start, err)
	return count, err
}

// GetSettings возвращает настройки бота. Отсутствующая строка даёт значения по умолчанию.
func (p *Postgres) GetSettings(ctx context.Context) (domain.BotSettings, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var s domain.BotSettings
	err := p.pool.QueryRow(ctx, `SELECT participation_keyword, updated_at FROM bot_settings WHERE id=1`).Scan(&s.ParticipationKeyword, &s.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "bot_settings_get", "bot_settings", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BotSettings{ParticipationKeyword: domain.DefaultParticipationKeyword}, nil
	}
	return s, err
}

// SetParticipationKeyword сохраняет ключевое слово.
func (p *Postgres) SetParticipationKeyword(ctx context.Context, keyword string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO bot_settings (id, participation_keyword, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET participation_keyword=EXCLUDED.participation_keyword, updated_at=now()
`, keyword)
	metrics.ObserveNetworkRequest("postgres", "bot_settings_set_keyword", "bot_settings", start, err)
	return err
}
