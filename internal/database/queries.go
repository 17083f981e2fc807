package database

import (
	"time"
)

func (db *PgOfficeRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, role, password_hash, created_at) "+
			"VALUES ($1, $2, 'normal', $3, $4) RETURNING id, username, email, role",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Role,
	)

	return u, err
}

func (db *PgOfficeRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, role",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Role,
	)

	return u, err
}

func (db *PgOfficeRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, role, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgOfficeRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, role, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgOfficeRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (external_id, name, description, owner_id, is_public, max_participants, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, external_id, name, description, owner_id, is_public, max_participants, created_at",
		params.ExternalId,
		params.Name,
		params.Description,
		params.OwnerId,
		params.IsPublic,
		params.MaxParticipants,
		time.Now().UTC(),
	)

	var r Room
	err := res.Scan(
		&r.Id,
		&r.ExternalId,
		&r.Name,
		&r.Description,
		&r.OwnerId,
		&r.IsPublic,
		&r.MaxParticipants,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgOfficeRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, description, owner_id, is_public, max_participants, created_at, updated_at "+
			"FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var r Room
	err := row.Scan(
		&r.Id,
		&r.ExternalId,
		&r.Name,
		&r.Description,
		&r.OwnerId,
		&r.IsPublic,
		&r.MaxParticipants,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func (db *PgOfficeRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.external_id, r.name, r.description, r.owner_id, r.is_public, r.max_participants, r.created_at, r.updated_at "+
			"FROM rooms r "+
			"LEFT JOIN participants p ON p.room_id = r.id AND p.account_id = $1 "+
			"WHERE r.is_public OR p.id IS NOT NULL "+
			"ORDER BY r.name",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(
			&r.Id,
			&r.ExternalId,
			&r.Name,
			&r.Description,
			&r.OwnerId,
			&r.IsPublic,
			&r.MaxParticipants,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

func (db *PgOfficeRepository) DeleteRoom(id int) error {
	_, err := db.conn.Exec("DELETE FROM rooms WHERE id = $1", id)
	return err
}

func (db *PgOfficeRepository) AddParticipant(accountId, roomId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO participants (account_id, room_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (account_id, room_id) DO NOTHING",
		accountId,
		roomId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgOfficeRepository) RemoveParticipant(accountId, roomId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM participants WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
	)
	return err
}

func (db *PgOfficeRepository) ParticipantExists(accountId, roomId int) bool {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM participants WHERE account_id = $1 AND room_id = $2)",
		accountId,
		roomId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false
	}

	return exists
}

func (db *PgOfficeRepository) UpsertPresence(params UpsertPresenceParams) error {
	_, err := db.conn.Exec(
		"INSERT INTO presences (account_id, room_id, status, position_x, position_y, audio_enabled, video_enabled, last_seen_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) "+
			"ON CONFLICT (account_id, room_id) DO UPDATE SET "+
			"status = EXCLUDED.status, position_x = EXCLUDED.position_x, position_y = EXCLUDED.position_y, "+
			"audio_enabled = EXCLUDED.audio_enabled, video_enabled = EXCLUDED.video_enabled, last_seen_at = EXCLUDED.last_seen_at",
		params.AccountId,
		params.RoomId,
		params.Status,
		params.X,
		params.Y,
		params.AudioEnabled,
		params.VideoEnabled,
		time.Now().UTC(),
	)
	return err
}

func (db *PgOfficeRepository) MarkPresenceOffline(accountId, roomId int) error {
	_, err := db.conn.Exec(
		"UPDATE presences SET status = 'offline', last_seen_at = $3 WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgOfficeRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, account_id, content, created_at) VALUES ($1, $2, $3, $4) "+
			"RETURNING id, room_id, account_id, content, created_at",
		params.RoomId,
		params.AccountId,
		params.Content,
		time.Now().UTC(),
	)

	var m Message
	err := res.Scan(
		&m.Id,
		&m.RoomId,
		&m.AccountId,
		&m.Content,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgOfficeRepository) GetMessages(roomId, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.account_id, a.username, m.content, m.created_at "+
			"FROM messages m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 ORDER BY m.id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.AccountId,
			&m.Username,
			&m.Content,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (db *PgOfficeRepository) CreateCall(params CreateCallParams) (Call, error) {
	res := db.conn.QueryRow(
		"INSERT INTO calls (room_id, started_by, kind, started_at) VALUES ($1, $2, $3, $4) "+
			"RETURNING id, room_id, (SELECT external_id FROM rooms WHERE rooms.id = calls.room_id), started_by, kind, started_at",
		params.RoomId,
		params.StartedBy,
		params.Kind,
		time.Now().UTC(),
	)

	var c Call
	err := res.Scan(
		&c.Id,
		&c.RoomId,
		&c.RoomExternalId,
		&c.StartedBy,
		&c.Kind,
		&c.StartedAt,
	)

	return c, err
}

func (db *PgOfficeRepository) EndCall(callId int) (Call, error) {
	res := db.conn.QueryRow(
		"UPDATE calls SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL "+
			"RETURNING id, room_id, (SELECT external_id FROM rooms WHERE rooms.id = calls.room_id), started_by, kind, started_at, ended_at",
		callId,
		time.Now().UTC(),
	)

	var c Call
	err := res.Scan(
		&c.Id,
		&c.RoomId,
		&c.RoomExternalId,
		&c.StartedBy,
		&c.Kind,
		&c.StartedAt,
		&c.EndedAt,
	)

	return c, err
}
