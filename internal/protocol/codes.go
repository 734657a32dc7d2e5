package protocol

// Record markers. Every record in a frame begins with a marker byte; anything
// other than MarkerCommand is keep-alive padding and is skipped.
const (
	MarkerKeepAlive byte = 0
	MarkerCommand   byte = 1
)

// Command codes shared with the client. These are a wire contract: values must
// not be renumbered.
const (
	CmdSetMessage      byte = 1
	CmdRequestAdmin    byte = 2
	CmdReboot          byte = 3
	CmdViewChatRooms   byte = 4
	CmdJoinChatRoom    byte = 5
	CmdLeaveChatRoom   byte = 6
	CmdCreateChatRoom  byte = 7
	CmdGetStats        byte = 8
	CmdWhois           byte = 9
	CmdCreateGame      byte = 10
	CmdRequestGameList byte = 11
	CmdJoinFreeForAll  byte = 12
	CmdJoinGame        byte = 13
	CmdServerMessage   byte = 14
	CmdChat            byte = 15
	CmdDisconnectMe    byte = 16
	CmdAddMember       byte = 17
	CmdRemoveMember    byte = 18
)

// MessageType tags an outbound chat message. The client uses it for
// presentation only; routing is identical across types except that private
// messages bypass room scoping.
type MessageType byte

const (
	MessageNormal MessageType = iota
	MessageEnterRoom
	MessageLeaveRoom
	MessageCritical
	MessagePrivate
)

// LoginFlag is the bit-set sent in the connect response.
type LoginFlag int32

const (
	LoginNone              LoginFlag = 0
	LoginNoCallSign        LoginFlag = 1
	LoginDemo              LoginFlag = 2
	LoginWrongCredentials  LoginFlag = 4
	LoginUnauthorized      LoginFlag = 8
	LoginServerAssignedTag LoginFlag = 16
	LoginBadVersion        LoginFlag = 32
	LoginMessageOfTheDay   LoginFlag = 64
)
