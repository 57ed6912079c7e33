package mq

// Completion codes
const (
	CCOK      int32 = 0
	CCWarning int32 = 1
	CCFailed  int32 = 2
)

// Reason codes
const (
	RCNone                 int32 = 0
	RCConnectionBroken     int32 = 2009
	RCHandleNotAvailable   int32 = 2017
	RCConnHandleError      int32 = 2018
	RCObjectHandleError    int32 = 2019
	RCNoMsgAvailable       int32 = 2033
	RCNotAuthorized        int32 = 2035
	RCNotOpenForInput      int32 = 2037
	RCNotOpenForOutput     int32 = 2039
	RCObjectInUse          int32 = 2042
	RCQueueManagerNameErr  int32 = 2058
	RCQueueManagerNotAvail int32 = 2059
	RCStorageNotAvailable  int32 = 2071
	RCUnknownObjectName    int32 = 2085
	RCQueueManagerQuiesce  int32 = 2161
	RCQueueManagerStopping int32 = 2162
	RCUnexpectedError      int32 = 2195
	RCSSLInitError         int32 = 2393
	RCHostNotAvailable     int32 = 2538
)

// Persistence values
const (
	PersistenceNotPersistent int32 = 0
	PersistencePersistent    int32 = 1
	PersistenceAsQueueDef    int32 = 2
)

// Special descriptor values
const (
	ExpiryUnlimited     int32 = -1
	PriorityAsQueueDef  int32 = -1
	WaitIntervalForever int32 = -1
)

// Message types
const (
	MsgTypeRequest  int32 = 1
	MsgTypeReply    int32 = 2
	MsgTypeReport   int32 = 4
	MsgTypeDatagram int32 = 8
)

// Report options
const (
	ReportNone         int32 = 0x00000000
	ReportPAN          int32 = 0x00000001
	ReportNAN          int32 = 0x00000002
	ReportPassCorrelID int32 = 0x00000040
	ReportPassMsgID    int32 = 0x00000080
	ReportCOA          int32 = 0x00000100
	ReportCOD          int32 = 0x00000800
	ReportExpiration   int32 = 0x00200000
	ReportException    int32 = 0x01000000
	ReportDiscardMsg   int32 = 0x08000000
)

// Message flags
const (
	MsgFlagsNone       int32 = 0x00
	MsgFlagMsgInGroup  int32 = 0x08
	MsgFlagLastInGroup int32 = 0x10
)

// Feedback
const FeedbackNone int32 = 0

// Open options
const (
	OpenInputAsQueueDef int32 = 0x00000001
	OpenInputShared     int32 = 0x00000002
	OpenOutput          int32 = 0x00000010
	OpenFailIfQuiescing int32 = 0x00002000
)

// Get message options
const (
	GetWait            int32 = 0x00000001
	GetFailIfQuiescing int32 = 0x00002000
	GetNoSyncpoint     int32 = 0x00000004
	GetAcceptTruncated int32 = 0x00000040
)

// Connect options
const (
	ConnectHandleShareNone  int32 = 0x00000020
	ConnectHandleShareBlock int32 = 0x00000040
)

// Channel and transport types
const (
	ChannelTypeClientConn int32 = 6
	TransportTCP          int32 = 2
)

// Put application types
const (
	PutApplTypeUnknown int32 = -1
	PutApplTypeUnix    int32 = 6
	PutApplTypeJava    int32 = 28
)

// Encodings and coded character set ids
const (
	EncodingNative  int32 = 546
	EncodingDefault int32 = 273
	CCSIDQueueMgr   int32 = 0
	CCSIDUTF8       int32 = 1208
)

// Formats are blank-padded to eight characters.
const (
	FormatNone      = "        "
	FormatString    = "MQSTR   "
	FormatRFHeader2 = "MQHRF2  "
)

// Fixed field widths of the descriptor
const (
	IDLength          = 24
	QueueNameLength   = 48
	UserIDLength      = 12
	PutApplNameLength = 28
	PutDateLength     = 8
	PutTimeLength     = 8
)
