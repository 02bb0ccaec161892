package wire

import "time"

// AttributeID selects a node attribute.
type AttributeID uint32

const (
	AttributeNodeID      AttributeID = 1
	AttributeNodeClass   AttributeID = 2
	AttributeBrowseName  AttributeID = 3
	AttributeDisplayName AttributeID = 4
	AttributeDescription AttributeID = 5
	AttributeValue       AttributeID = 13
	AttributeDataType    AttributeID = 14
)

// TimestampsToReturn selects which timestamps a server includes in results.
type TimestampsToReturn uint8

const (
	TimestampsSource  TimestampsToReturn = 0
	TimestampsServer  TimestampsToReturn = 1
	TimestampsBoth    TimestampsToReturn = 2
	TimestampsNeither TimestampsToReturn = 3
)

// MonitoringMode controls sampling and reporting of a monitored item.
type MonitoringMode uint8

const (
	MonitoringDisabled  MonitoringMode = 0
	MonitoringSampling  MonitoringMode = 1
	MonitoringReporting MonitoringMode = 2
)

// BrowseDirection selects reference traversal direction.
type BrowseDirection uint8

const (
	BrowseDirectionForward BrowseDirection = 0
	BrowseDirectionInverse BrowseDirection = 1
	BrowseDirectionBoth    BrowseDirection = 2
)

// DataValue is an attribute value with quality and timestamps.
type DataValue struct {
	Value           any        `cbor:"Value,omitempty"`
	Status          StatusCode `cbor:"Status,omitempty"`
	SourceTimestamp time.Time  `cbor:"SourceTimestamp,omitempty"`
	ServerTimestamp time.Time  `cbor:"ServerTimestamp,omitempty"`
}

// ReadValueID names a node attribute to read or monitor.
type ReadValueID struct {
	NodeID      NodeID      `cbor:"NodeId"`
	AttributeID AttributeID `cbor:"AttributeId"`
}

// Browse

type BrowseDescription struct {
	NodeID          NodeID          `cbor:"NodeId"`
	Direction       BrowseDirection `cbor:"Direction,omitempty"`
	ReferenceTypeID NodeID          `cbor:"ReferenceTypeId,omitempty"`
	IncludeSubtypes bool            `cbor:"IncludeSubtypes,omitempty"`
	NodeClassMask   uint32          `cbor:"NodeClassMask,omitempty"`
	ResultMask      uint32          `cbor:"ResultMask,omitempty"`
}

type ReferenceDescription struct {
	ReferenceTypeID NodeID        `cbor:"ReferenceTypeId,omitempty"`
	IsForward       bool          `cbor:"IsForward,omitempty"`
	NodeID          NodeID        `cbor:"NodeId"`
	BrowseName      QualifiedName `cbor:"BrowseName,omitempty"`
	DisplayName     string        `cbor:"DisplayName,omitempty"`
	NodeClass       uint32        `cbor:"NodeClass,omitempty"`
}

type BrowseResult struct {
	StatusCode        StatusCode             `cbor:"StatusCode,omitempty"`
	ContinuationPoint []byte                 `cbor:"ContinuationPoint,omitempty"`
	References        []ReferenceDescription `cbor:"References,omitempty"`
}

type BrowseParams struct {
	NodesToBrowse                 []BrowseDescription `cbor:"NodesToBrowse"`
	RequestedMaxReferencesPerNode uint32              `cbor:"RequestedMaxReferencesPerNode,omitempty"`
}

type BrowseResultSet struct {
	Results []BrowseResult `cbor:"Results,omitempty"`
}

type BrowseNextParams struct {
	ReleaseContinuationPoints bool     `cbor:"ReleaseContinuationPoints,omitempty"`
	ContinuationPoints        [][]byte `cbor:"ContinuationPoints"`
}

// Read / Write / Call

type ReadParams struct {
	MaxAge             float64            `cbor:"MaxAge,omitempty"`
	TimestampsToReturn TimestampsToReturn `cbor:"TimestampsToReturn,omitempty"`
	NodesToRead        []ReadValueID      `cbor:"NodesToRead"`
}

type ReadResultSet struct {
	Results []DataValue `cbor:"Results,omitempty"`
}

type WriteValue struct {
	NodeID      NodeID      `cbor:"NodeId"`
	AttributeID AttributeID `cbor:"AttributeId"`
	Value       DataValue   `cbor:"Value"`
}

type WriteParams struct {
	NodesToWrite []WriteValue `cbor:"NodesToWrite"`
}

type WriteResultSet struct {
	Results []StatusCode `cbor:"Results,omitempty"`
}

type CallMethodRequest struct {
	ObjectID       NodeID `cbor:"ObjectId"`
	MethodID       NodeID `cbor:"MethodId"`
	InputArguments []any  `cbor:"InputArguments,omitempty"`
}

type CallMethodResult struct {
	StatusCode      StatusCode `cbor:"StatusCode,omitempty"`
	OutputArguments []any      `cbor:"OutputArguments,omitempty"`
}

type CallParams struct {
	MethodsToCall []CallMethodRequest `cbor:"MethodsToCall"`
}

type CallResultSet struct {
	Results []CallMethodResult `cbor:"Results,omitempty"`
}

// TranslateBrowsePathsToNodeIds

type RelativePathElement struct {
	ReferenceTypeID NodeID        `cbor:"ReferenceTypeId,omitempty"`
	IsInverse       bool          `cbor:"IsInverse,omitempty"`
	IncludeSubtypes bool          `cbor:"IncludeSubtypes,omitempty"`
	TargetName      QualifiedName `cbor:"TargetName"`
}

type RelativePath struct {
	Elements []RelativePathElement `cbor:"Elements"`
}

type BrowsePath struct {
	StartingNode NodeID       `cbor:"StartingNode"`
	RelativePath RelativePath `cbor:"RelativePath"`
}

type BrowsePathTarget struct {
	TargetID           NodeID `cbor:"TargetId"`
	RemainingPathIndex uint32 `cbor:"RemainingPathIndex,omitempty"`
}

type BrowsePathResult struct {
	StatusCode StatusCode         `cbor:"StatusCode,omitempty"`
	Targets    []BrowsePathTarget `cbor:"Targets,omitempty"`
}

type TranslateBrowsePathsParams struct {
	BrowsePaths []BrowsePath `cbor:"BrowsePaths"`
}

type TranslateBrowsePathsResultSet struct {
	Results []BrowsePathResult `cbor:"Results,omitempty"`
}

// History

type HistoryReadValueID struct {
	NodeID            NodeID `cbor:"NodeId"`
	IndexRange        string `cbor:"IndexRange,omitempty"`
	ContinuationPoint []byte `cbor:"ContinuationPoint,omitempty"`
}

type HistoryReadParams struct {
	HistoryReadDetails any                  `cbor:"HistoryReadDetails,omitempty"`
	TimestampsToReturn TimestampsToReturn   `cbor:"TimestampsToReturn,omitempty"`
	NodesToRead        []HistoryReadValueID `cbor:"NodesToRead"`
}

type HistoryReadResult struct {
	StatusCode        StatusCode  `cbor:"StatusCode,omitempty"`
	ContinuationPoint []byte      `cbor:"ContinuationPoint,omitempty"`
	DataValues        []DataValue `cbor:"DataValues,omitempty"`
}

type HistoryReadResultSet struct {
	Results []HistoryReadResult `cbor:"Results,omitempty"`
}

type HistoryUpdateParams struct {
	HistoryUpdateDetails []any `cbor:"HistoryUpdateDetails"`
}

type HistoryUpdateResultSet struct {
	Results []StatusCode `cbor:"Results,omitempty"`
}

// Session

type IssuedIdentityToken struct {
	PolicyID  string `cbor:"PolicyId,omitempty"`
	TokenData string `cbor:"TokenData"`
}

type CreateSessionParams struct {
	SessionName             string  `cbor:"SessionName,omitempty"`
	ClientNonce             []byte  `cbor:"ClientNonce,omitempty"`
	RequestedSessionTimeout float64 `cbor:"RequestedSessionTimeout,omitempty"`
}

type CreateSessionResult struct {
	SessionID             NodeID  `cbor:"SessionId,omitempty"`
	AuthenticationToken   string  `cbor:"AuthenticationToken"`
	RevisedSessionTimeout float64 `cbor:"RevisedSessionTimeout,omitempty"`
	ServerNonce           []byte  `cbor:"ServerNonce,omitempty"`
}

type ActivateSessionParams struct {
	LocaleIDs         []string             `cbor:"LocaleIds,omitempty"`
	UserIdentityToken *IssuedIdentityToken `cbor:"UserIdentityToken,omitempty"`
}

type ActivateSessionResult struct {
	ServerNonce []byte       `cbor:"ServerNonce,omitempty"`
	Results     []StatusCode `cbor:"Results,omitempty"`
}

type CloseSessionParams struct {
	DeleteSubscriptions bool `cbor:"DeleteSubscriptions,omitempty"`
}

type CloseSessionResult struct{}

// Subscription

type CreateSubscriptionParams struct {
	RequestedPublishingInterval float64 `cbor:"RequestedPublishingInterval,omitempty"`
	RequestedLifetimeCount      uint32  `cbor:"RequestedLifetimeCount,omitempty"`
	RequestedMaxKeepAliveCount  uint32  `cbor:"RequestedMaxKeepAliveCount,omitempty"`
	MaxNotificationsPerPublish  uint32  `cbor:"MaxNotificationsPerPublish,omitempty"`
	PublishingEnabled           bool    `cbor:"PublishingEnabled,omitempty"`
	Priority                    uint8   `cbor:"Priority,omitempty"`
}

type CreateSubscriptionResult struct {
	SubscriptionID            uint32  `cbor:"SubscriptionId"`
	RevisedPublishingInterval float64 `cbor:"RevisedPublishingInterval,omitempty"`
	RevisedLifetimeCount      uint32  `cbor:"RevisedLifetimeCount,omitempty"`
	RevisedMaxKeepAliveCount  uint32  `cbor:"RevisedMaxKeepAliveCount,omitempty"`
}

type ModifySubscriptionParams struct {
	SubscriptionID              uint32  `cbor:"SubscriptionId"`
	RequestedPublishingInterval float64 `cbor:"RequestedPublishingInterval,omitempty"`
	RequestedLifetimeCount      uint32  `cbor:"RequestedLifetimeCount,omitempty"`
	RequestedMaxKeepAliveCount  uint32  `cbor:"RequestedMaxKeepAliveCount,omitempty"`
	MaxNotificationsPerPublish  uint32  `cbor:"MaxNotificationsPerPublish,omitempty"`
	Priority                    uint8   `cbor:"Priority,omitempty"`
}

type ModifySubscriptionResult struct {
	RevisedPublishingInterval float64 `cbor:"RevisedPublishingInterval,omitempty"`
	RevisedLifetimeCount      uint32  `cbor:"RevisedLifetimeCount,omitempty"`
	RevisedMaxKeepAliveCount  uint32  `cbor:"RevisedMaxKeepAliveCount,omitempty"`
}

type DeleteSubscriptionsParams struct {
	SubscriptionIDs []uint32 `cbor:"SubscriptionIds"`
}

type DeleteSubscriptionsResultSet struct {
	Results []StatusCode `cbor:"Results,omitempty"`
}

type SetPublishingModeParams struct {
	PublishingEnabled bool     `cbor:"PublishingEnabled"`
	SubscriptionIDs   []uint32 `cbor:"SubscriptionIds"`
}

type SetPublishingModeResultSet struct {
	Results []StatusCode `cbor:"Results,omitempty"`
}

// Publish

type SubscriptionAcknowledgement struct {
	SubscriptionID uint32 `cbor:"SubscriptionId"`
	SequenceNumber uint32 `cbor:"SequenceNumber"`
}

type PublishParams struct {
	SubscriptionAcknowledgements []SubscriptionAcknowledgement `cbor:"SubscriptionAcknowledgements,omitempty"`
}

type MonitoredItemNotification struct {
	ClientHandle uint32    `cbor:"ClientHandle"`
	Value        DataValue `cbor:"Value"`
}

type DataChangeNotification struct {
	MonitoredItems []MonitoredItemNotification `cbor:"MonitoredItems,omitempty"`
}

type NotificationMessage struct {
	SequenceNumber   uint32                   `cbor:"SequenceNumber"`
	PublishTime      time.Time                `cbor:"PublishTime,omitempty"`
	NotificationData []DataChangeNotification `cbor:"NotificationData,omitempty"`
}

type PublishResult struct {
	SubscriptionID           uint32              `cbor:"SubscriptionId"`
	AvailableSequenceNumbers []uint32            `cbor:"AvailableSequenceNumbers,omitempty"`
	MoreNotifications        bool                `cbor:"MoreNotifications,omitempty"`
	NotificationMessage      NotificationMessage `cbor:"NotificationMessage,omitempty"`
	Results                  []StatusCode        `cbor:"Results,omitempty"`
}

// Monitored items

type MonitoringParameters struct {
	ClientHandle     uint32  `cbor:"ClientHandle"`
	SamplingInterval float64 `cbor:"SamplingInterval,omitempty"`
	QueueSize        uint32  `cbor:"QueueSize,omitempty"`
	DiscardOldest    bool    `cbor:"DiscardOldest,omitempty"`
}

type MonitoredItemCreateRequest struct {
	ItemToMonitor       ReadValueID          `cbor:"ItemToMonitor"`
	MonitoringMode      MonitoringMode       `cbor:"MonitoringMode,omitempty"`
	RequestedParameters MonitoringParameters `cbor:"RequestedParameters"`
}

type MonitoredItemCreateResult struct {
	StatusCode              StatusCode `cbor:"StatusCode,omitempty"`
	MonitoredItemID         uint32     `cbor:"MonitoredItemId,omitempty"`
	RevisedSamplingInterval float64    `cbor:"RevisedSamplingInterval,omitempty"`
	RevisedQueueSize        uint32     `cbor:"RevisedQueueSize,omitempty"`
}

type CreateMonitoredItemsParams struct {
	SubscriptionID     uint32                       `cbor:"SubscriptionId"`
	TimestampsToReturn TimestampsToReturn           `cbor:"TimestampsToReturn,omitempty"`
	ItemsToCreate      []MonitoredItemCreateRequest `cbor:"ItemsToCreate"`
}

type CreateMonitoredItemsResultSet struct {
	Results []MonitoredItemCreateResult `cbor:"Results,omitempty"`
}

type MonitoredItemModifyRequest struct {
	MonitoredItemID     uint32               `cbor:"MonitoredItemId"`
	RequestedParameters MonitoringParameters `cbor:"RequestedParameters"`
}

type MonitoredItemModifyResult struct {
	StatusCode              StatusCode `cbor:"StatusCode,omitempty"`
	RevisedSamplingInterval float64    `cbor:"RevisedSamplingInterval,omitempty"`
	RevisedQueueSize        uint32     `cbor:"RevisedQueueSize,omitempty"`
}

type ModifyMonitoredItemsParams struct {
	SubscriptionID     uint32                       `cbor:"SubscriptionId"`
	TimestampsToReturn TimestampsToReturn           `cbor:"TimestampsToReturn,omitempty"`
	ItemsToModify      []MonitoredItemModifyRequest `cbor:"ItemsToModify"`
}

type ModifyMonitoredItemsResultSet struct {
	Results []MonitoredItemModifyResult `cbor:"Results,omitempty"`
}

type DeleteMonitoredItemsParams struct {
	SubscriptionID   uint32   `cbor:"SubscriptionId"`
	MonitoredItemIDs []uint32 `cbor:"MonitoredItemIds"`
}

type DeleteMonitoredItemsResultSet struct {
	Results []StatusCode `cbor:"Results,omitempty"`
}
