package database

type OfficeRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	ListRoomsForAccount(accountId int) ([]Room, error)
	DeleteRoom(id int) error
	AddParticipant(accountId, roomId int) error
	RemoveParticipant(accountId, roomId int) error
	ParticipantExists(accountId, roomId int) bool
	UpsertPresence(params UpsertPresenceParams) error
	MarkPresenceOffline(accountId, roomId int) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(roomId, limit int) ([]Message, error)
	CreateCall(params CreateCallParams) (Call, error)
	EndCall(callId int) (Call, error)
}
