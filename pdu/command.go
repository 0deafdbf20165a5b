package pdu

import "fmt"

// CommandID identifies the kind of a PDU.
type CommandID uint32

// SMPP v3.4 command identifiers.
const (
	GenericNackID         CommandID = 0x80000000
	BindReceiverID        CommandID = 0x00000001
	BindReceiverRespID    CommandID = 0x80000001
	BindTransmitterID     CommandID = 0x00000002
	BindTransmitterRespID CommandID = 0x80000002
	QuerySmID             CommandID = 0x00000003
	QuerySmRespID         CommandID = 0x80000003
	SubmitSmID            CommandID = 0x00000004
	SubmitSmRespID        CommandID = 0x80000004
	DeliverSmID           CommandID = 0x00000005
	DeliverSmRespID       CommandID = 0x80000005
	UnbindID              CommandID = 0x00000006
	UnbindRespID          CommandID = 0x80000006
	ReplaceSmID           CommandID = 0x00000007
	ReplaceSmRespID       CommandID = 0x80000007
	CancelSmID            CommandID = 0x00000008
	CancelSmRespID        CommandID = 0x80000008
	BindTransceiverID     CommandID = 0x00000009
	BindTransceiverRespID CommandID = 0x80000009
	OutbindID             CommandID = 0x0000000B
	EnquireLinkID         CommandID = 0x00000015
	EnquireLinkRespID     CommandID = 0x80000015
	SubmitMultiID         CommandID = 0x00000021
	SubmitMultiRespID     CommandID = 0x80000021
	AlertNotificationID   CommandID = 0x00000102
	DataSmID              CommandID = 0x00000103
	DataSmRespID          CommandID = 0x80000103
)

const responseMask = 0x80000000

var commandNames = map[CommandID]string{
	GenericNackID:         "generic_nack",
	BindReceiverID:        "bind_receiver",
	BindReceiverRespID:    "bind_receiver_resp",
	BindTransmitterID:     "bind_transmitter",
	BindTransmitterRespID: "bind_transmitter_resp",
	QuerySmID:             "query_sm",
	QuerySmRespID:         "query_sm_resp",
	SubmitSmID:            "submit_sm",
	SubmitSmRespID:        "submit_sm_resp",
	DeliverSmID:           "deliver_sm",
	DeliverSmRespID:       "deliver_sm_resp",
	UnbindID:              "unbind",
	UnbindRespID:          "unbind_resp",
	ReplaceSmID:           "replace_sm",
	ReplaceSmRespID:       "replace_sm_resp",
	CancelSmID:            "cancel_sm",
	CancelSmRespID:        "cancel_sm_resp",
	BindTransceiverID:     "bind_transceiver",
	BindTransceiverRespID: "bind_transceiver_resp",
	OutbindID:             "outbind",
	EnquireLinkID:         "enquire_link",
	EnquireLinkRespID:     "enquire_link_resp",
	SubmitMultiID:         "submit_multi",
	SubmitMultiRespID:     "submit_multi_resp",
	AlertNotificationID:   "alert_notification",
	DataSmID:              "data_sm",
	DataSmRespID:          "data_sm_resp",
}

// String returns the SMPP name of the command.
func (id CommandID) String() string {
	if name, ok := commandNames[id]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%08X)", uint32(id))
}

// Known reports whether the command is part of the supported set.
func (id CommandID) Known() bool {
	_, ok := commandNames[id]
	return ok
}

// IsResponse reports whether the command is a response (including generic_nack).
func (id CommandID) IsResponse() bool { return id&responseMask != 0 }

// Response returns the response command id matching a request id.
func (id CommandID) Response() CommandID { return id | responseMask }

// Request returns the request command id matching a response id.
func (id CommandID) Request() CommandID { return id &^ responseMask }

// IsBind reports whether the command is one of the bind requests.
func (id CommandID) IsBind() bool {
	switch id {
	case BindReceiverID, BindTransmitterID, BindTransceiverID:
		return true
	}
	return false
}

// HasResponse reports whether a request of this kind must be answered.
// alert_notification and outbind have no response PDU.
func (id CommandID) HasResponse() bool {
	if id.IsResponse() {
		return false
	}
	switch id {
	case AlertNotificationID, OutbindID:
		return false
	}
	return true
}
