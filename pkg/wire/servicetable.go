package wire

// Route describes the point-to-point fallback for a request service: the
// endpoint path to call and the service id to stamp on the synthesized
// response.
type Route struct {
	Path     string
	Response ServiceID
}

// serviceTable maps request service ids to their fallback routes.
var serviceTable = map[ServiceID]Route{
	ServiceBrowseRequest:               {Path: "/browse", Response: ServiceBrowseResponse},
	ServiceBrowseNextRequest:           {Path: "/browsenext", Response: ServiceBrowseNextResponse},
	ServiceReadRequest:                 {Path: "/read", Response: ServiceReadResponse},
	ServiceWriteRequest:                {Path: "/write", Response: ServiceWriteResponse},
	ServiceCallRequest:                 {Path: "/call", Response: ServiceCallResponse},
	ServiceTranslateBrowsePathsRequest: {Path: "/translate", Response: ServiceTranslateBrowsePathsResponse},
	ServiceHistoryReadRequest:          {Path: "/historyread", Response: ServiceHistoryReadResponse},
	ServiceHistoryUpdateRequest:        {Path: "/historyupdate", Response: ServiceHistoryUpdateResponse},
	ServiceCreateSessionRequest:        {Path: "/createsession", Response: ServiceCreateSessionResponse},
	ServiceActivateSessionRequest:      {Path: "/activatesession", Response: ServiceActivateSessionResponse},
	ServiceCloseSessionRequest:         {Path: "/closesession", Response: ServiceCloseSessionResponse},
	ServicePublishRequest:              {Path: "/publish", Response: ServicePublishResponse},
	ServiceSetPublishingModeRequest:    {Path: "/setpublishingmode", Response: ServiceSetPublishingModeResponse},
	ServiceCreateSubscriptionRequest:   {Path: "/createsubscription", Response: ServiceCreateSubscriptionResponse},
	ServiceModifySubscriptionRequest:   {Path: "/modifysubscription", Response: ServiceModifySubscriptionResponse},
	ServiceDeleteSubscriptionsRequest:  {Path: "/deletesubscriptions", Response: ServiceDeleteSubscriptionsResponse},
	ServiceCreateMonitoredItemsRequest: {Path: "/createmonitoreditems", Response: ServiceCreateMonitoredItemsResponse},
	ServiceModifyMonitoredItemsRequest: {Path: "/modifymonitoreditems", Response: ServiceModifyMonitoredItemsResponse},
	ServiceDeleteMonitoredItemsRequest: {Path: "/deletemonitoreditems", Response: ServiceDeleteMonitoredItemsResponse},
}

// LookupRoute returns the fallback route for a request service id.
func LookupRoute(id ServiceID) (Route, bool) {
	route, ok := serviceTable[id]
	return route, ok
}
