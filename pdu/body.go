package pdu

import (
	"github.com/linxGnu/gosmpp/data"
	wire "github.com/linxGnu/gosmpp/pdu"
)

// Body is the kind-specific part of a PDU. The concrete types are the
// structs in this file; kinds without mandatory parameters (enquire_link,
// unbind, generic_nack and their responses, cancel_sm_resp,
// replace_sm_resp) carry a nil Body.
type Body interface {
	// toWire copies the fields into the gosmpp PDU of the same kind.
	toWire(w wire.PDU) error
	// fromWire loads the fields of a parsed gosmpp PDU.
	fromWire(w wire.PDU) error
}

// Address is a TON/NPI qualified SME address.
type Address struct {
	TON  uint8
	NPI  uint8
	Addr string
}

func (a Address) wire() (wire.Address, error) {
	w := wire.NewAddress()
	w.SetTon(a.TON)
	w.SetNpi(a.NPI)
	return w, w.SetAddress(a.Addr)
}

func addressOf(w wire.Address) Address {
	return Address{TON: w.Ton(), NPI: w.Npi(), Addr: w.Address()}
}

// Bind is the body of bind_transmitter, bind_receiver and bind_transceiver.
type Bind struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTON          uint8
	AddrNPI          uint8
	AddressRange     string
}

func (b *Bind) toWire(w wire.PDU) error {
	v, ok := w.(*wire.BindRequest)
	if !ok {
		return mismatch(b, w)
	}
	v.SystemID = b.SystemID
	v.Password = b.Password
	v.SystemType = b.SystemType
	v.InterfaceVersion = b.InterfaceVersion
	v.AddressRange = wire.AddressRange{Ton: b.AddrTON, Npi: b.AddrNPI, AddressRange: b.AddressRange}
	return nil
}

func (b *Bind) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.BindRequest)
	if !ok {
		return mismatch(b, w)
	}
	b.SystemID = v.SystemID
	b.Password = v.Password
	b.SystemType = v.SystemType
	b.InterfaceVersion = uint8(v.InterfaceVersion)
	b.AddrTON = v.AddressRange.Ton
	b.AddrNPI = v.AddressRange.Npi
	b.AddressRange = v.AddressRange.AddressRange
	return nil
}

// BindResp is the body of the bind_*_resp kinds.
type BindResp struct {
	SystemID string
	Options  Options
}

func (b *BindResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.BindResp)
	if !ok {
		return mismatch(b, w)
	}
	v.SystemID = b.SystemID
	b.Options.toWire(v)
	return nil
}

func (b *BindResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.BindResp)
	if !ok {
		return mismatch(b, w)
	}
	b.SystemID = v.SystemID
	b.Options = optionsOf(v.OptionalParameters)
	return nil
}

// Outbind is sent by an SMSC to ask an ESME to bind.
type Outbind struct {
	SystemID string
	Password string
}

func (b *Outbind) toWire(w wire.PDU) error {
	v, ok := w.(*wire.Outbind)
	if !ok {
		return mismatch(b, w)
	}
	v.SystemID = b.SystemID
	v.Password = b.Password
	return nil
}

func (b *Outbind) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.Outbind)
	if !ok {
		return mismatch(b, w)
	}
	b.SystemID = v.SystemID
	b.Password = v.Password
	return nil
}

// ShortMessage holds the fields shared by submit_sm and deliver_sm.
type ShortMessage struct {
	ServiceType          string
	Source               Address
	Dest                 Address
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresent     uint8
	DataCoding           uint8
	DefaultMsgID         uint8
	Message              []byte
	Options              Options
}

// SubmitSm is the body of submit_sm.
type SubmitSm struct{ ShortMessage }

func (m *SubmitSm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitSM)
	if !ok {
		return mismatch(m, w)
	}
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	if v.DestAddr, err = m.Dest.wire(); err != nil {
		return err
	}
	v.ServiceType = m.ServiceType
	v.EsmClass = m.EsmClass
	v.ProtocolID = m.ProtocolID
	v.PriorityFlag = m.PriorityFlag
	v.ScheduleDeliveryTime = m.ScheduleDeliveryTime
	v.ValidityPeriod = m.ValidityPeriod
	v.RegisteredDelivery = m.RegisteredDelivery
	v.ReplaceIfPresentFlag = m.ReplaceIfPresent
	m.Options.toWire(v)
	return setMessage(&v.Message, m.DataCoding, m.DefaultMsgID, m.Message)
}

func (m *SubmitSm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitSM)
	if !ok {
		return mismatch(m, w)
	}
	m.ServiceType = v.ServiceType
	m.Source = addressOf(v.SourceAddr)
	m.Dest = addressOf(v.DestAddr)
	m.EsmClass = v.EsmClass
	m.ProtocolID = v.ProtocolID
	m.PriorityFlag = v.PriorityFlag
	m.ScheduleDeliveryTime = v.ScheduleDeliveryTime
	m.ValidityPeriod = v.ValidityPeriod
	m.RegisteredDelivery = v.RegisteredDelivery
	m.ReplaceIfPresent = v.ReplaceIfPresentFlag
	m.Options = optionsOf(v.OptionalParameters)
	var err error
	m.DataCoding, m.DefaultMsgID, m.Message, err = messageOf(&v.Message)
	return err
}

// DeliverSm is the body of deliver_sm.
type DeliverSm struct{ ShortMessage }

// IsReceipt reports whether the esm_class marks a delivery receipt.
func (m *DeliverSm) IsReceipt() bool { return m.EsmClass&0x3C == 0x04 }

func (m *DeliverSm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.DeliverSM)
	if !ok {
		return mismatch(m, w)
	}
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	if v.DestAddr, err = m.Dest.wire(); err != nil {
		return err
	}
	v.ServiceType = m.ServiceType
	v.EsmClass = m.EsmClass
	v.ProtocolID = m.ProtocolID
	v.PriorityFlag = m.PriorityFlag
	v.ScheduleDeliveryTime = m.ScheduleDeliveryTime
	v.ValidityPeriod = m.ValidityPeriod
	v.RegisteredDelivery = m.RegisteredDelivery
	v.ReplaceIfPresentFlag = m.ReplaceIfPresent
	m.Options.toWire(v)
	return setMessage(&v.Message, m.DataCoding, m.DefaultMsgID, m.Message)
}

func (m *DeliverSm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.DeliverSM)
	if !ok {
		return mismatch(m, w)
	}
	m.ServiceType = v.ServiceType
	m.Source = addressOf(v.SourceAddr)
	m.Dest = addressOf(v.DestAddr)
	m.EsmClass = v.EsmClass
	m.ProtocolID = v.ProtocolID
	m.PriorityFlag = v.PriorityFlag
	m.ScheduleDeliveryTime = v.ScheduleDeliveryTime
	m.ValidityPeriod = v.ValidityPeriod
	m.RegisteredDelivery = v.RegisteredDelivery
	m.ReplaceIfPresent = v.ReplaceIfPresentFlag
	m.Options = optionsOf(v.OptionalParameters)
	var err error
	m.DataCoding, m.DefaultMsgID, m.Message, err = messageOf(&v.Message)
	return err
}

// SubmitSmResp is the body of submit_sm_resp.
type SubmitSmResp struct {
	MessageID string
}

func (m *SubmitSmResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitSMResp)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	return nil
}

func (m *SubmitSmResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitSMResp)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	return nil
}

// DeliverSmResp is the body of deliver_sm_resp. message_id is unused by
// SMPP v3.4 and normally empty.
type DeliverSmResp struct {
	MessageID string
}

func (m *DeliverSmResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.DeliverSMResp)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	return nil
}

func (m *DeliverSmResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.DeliverSMResp)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	return nil
}

// DataSm is the body of data_sm.
type DataSm struct {
	ServiceType        string
	Source             Address
	Dest               Address
	EsmClass           uint8
	RegisteredDelivery uint8
	DataCoding         uint8
	Options            Options
}

func (m *DataSm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.DataSM)
	if !ok {
		return mismatch(m, w)
	}
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	if v.DestAddr, err = m.Dest.wire(); err != nil {
		return err
	}
	v.ServiceType = m.ServiceType
	v.EsmClass = m.EsmClass
	v.RegisteredDelivery = m.RegisteredDelivery
	v.DataCoding = m.DataCoding
	m.Options.toWire(v)
	return nil
}

func (m *DataSm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.DataSM)
	if !ok {
		return mismatch(m, w)
	}
	m.ServiceType = v.ServiceType
	m.Source = addressOf(v.SourceAddr)
	m.Dest = addressOf(v.DestAddr)
	m.EsmClass = v.EsmClass
	m.RegisteredDelivery = v.RegisteredDelivery
	m.DataCoding = v.DataCoding
	m.Options = optionsOf(v.OptionalParameters)
	return nil
}

// DataSmResp is the body of data_sm_resp.
type DataSmResp struct {
	MessageID string
	Options   Options
}

func (m *DataSmResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.DataSMResp)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	m.Options.toWire(v)
	return nil
}

func (m *DataSmResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.DataSMResp)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	m.Options = optionsOf(v.OptionalParameters)
	return nil
}

// DestAddress is one destination of submit_multi: either an SME address or
// a distribution list name.
type DestAddress struct {
	Address          Address
	DistributionList string
}

// SubmitMulti is the body of submit_multi.
type SubmitMulti struct {
	ServiceType          string
	Source               Address
	Dests                []DestAddress
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresent     uint8
	DataCoding           uint8
	DefaultMsgID         uint8
	Message              []byte
	Options              Options
}

func (m *SubmitMulti) toWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitMulti)
	if !ok {
		return mismatch(m, w)
	}
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	dests := wire.NewDestinationAddresses()
	for _, d := range m.Dests {
		da := wire.NewDestinationAddress()
		if d.DistributionList != "" {
			dl, err := wire.NewDistributionList(d.DistributionList)
			if err != nil {
				return err
			}
			da.SetDistributionList(dl)
		} else {
			addr, err := d.Address.wire()
			if err != nil {
				return err
			}
			da.SetAddress(addr)
		}
		dests.Add(da)
	}
	v.DestAddrs = dests
	v.ServiceType = m.ServiceType
	v.EsmClass = m.EsmClass
	v.ProtocolID = m.ProtocolID
	v.PriorityFlag = m.PriorityFlag
	v.ScheduleDeliveryTime = m.ScheduleDeliveryTime
	v.ValidityPeriod = m.ValidityPeriod
	v.RegisteredDelivery = m.RegisteredDelivery
	v.ReplaceIfPresentFlag = m.ReplaceIfPresent
	m.Options.toWire(v)
	return setMessage(&v.Message, m.DataCoding, m.DefaultMsgID, m.Message)
}

func (m *SubmitMulti) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitMulti)
	if !ok {
		return mismatch(m, w)
	}
	m.ServiceType = v.ServiceType
	m.Source = addressOf(v.SourceAddr)
	m.Dests = nil
	for _, d := range v.DestAddrs.Get() {
		if d.IsDistributionList() {
			m.Dests = append(m.Dests, DestAddress{DistributionList: d.DistributionList().Name()})
			continue
		}
		m.Dests = append(m.Dests, DestAddress{Address: addressOf(d.Address())})
	}
	m.EsmClass = v.EsmClass
	m.ProtocolID = v.ProtocolID
	m.PriorityFlag = v.PriorityFlag
	m.ScheduleDeliveryTime = v.ScheduleDeliveryTime
	m.ValidityPeriod = v.ValidityPeriod
	m.RegisteredDelivery = v.RegisteredDelivery
	m.ReplaceIfPresent = v.ReplaceIfPresentFlag
	m.Options = optionsOf(v.OptionalParameters)
	var err error
	m.DataCoding, m.DefaultMsgID, m.Message, err = messageOf(&v.Message)
	return err
}

// UnsuccessSme is one rejected destination in submit_multi_resp.
type UnsuccessSme struct {
	Address Address
	Error   Status
}

// SubmitMultiResp is the body of submit_multi_resp.
type SubmitMultiResp struct {
	MessageID string
	Unsuccess []UnsuccessSme
}

func (m *SubmitMultiResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitMultiResp)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	var list wire.UnsuccessSMEs
	for _, u := range m.Unsuccess {
		addr, err := u.Address.wire()
		if err != nil {
			return err
		}
		sme := wire.UnsuccessSME{Address: addr}
		sme.SetErrorStatusCode(data.CommandStatusType(u.Error))
		list.Add(sme)
	}
	v.UnsuccessSMEs = list
	return nil
}

func (m *SubmitMultiResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.SubmitMultiResp)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	m.Unsuccess = nil
	for _, u := range v.UnsuccessSMEs.Get() {
		m.Unsuccess = append(m.Unsuccess, UnsuccessSme{
			Address: addressOf(u.Address),
			Error:   Status(u.ErrorStatusCode()),
		})
	}
	return nil
}

// QuerySm is the body of query_sm.
type QuerySm struct {
	MessageID string
	Source    Address
}

func (m *QuerySm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.QuerySM)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	var err error
	v.SourceAddr, err = m.Source.wire()
	return err
}

func (m *QuerySm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.QuerySM)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	m.Source = addressOf(v.SourceAddr)
	return nil
}

// Message states reported by query_sm_resp and delivery receipts.
const (
	StateEnroute       = 1
	StateDelivered     = 2
	StateExpired       = 3
	StateDeleted       = 4
	StateUndeliverable = 5
	StateAccepted      = 6
	StateUnknown       = 7
	StateRejected      = 8
)

// QuerySmResp is the body of query_sm_resp.
type QuerySmResp struct {
	MessageID    string
	FinalDate    string
	MessageState uint8
	ErrorCode    uint8
}

func (m *QuerySmResp) toWire(w wire.PDU) error {
	v, ok := w.(*wire.QuerySMResp)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	v.FinalDate = m.FinalDate
	v.MessageState = m.MessageState
	v.ErrorCode = m.ErrorCode
	return nil
}

func (m *QuerySmResp) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.QuerySMResp)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	m.FinalDate = v.FinalDate
	m.MessageState = v.MessageState
	m.ErrorCode = v.ErrorCode
	return nil
}

// CancelSm is the body of cancel_sm.
type CancelSm struct {
	ServiceType string
	MessageID   string
	Source      Address
	Dest        Address
}

func (m *CancelSm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.CancelSM)
	if !ok {
		return mismatch(m, w)
	}
	v.ServiceType = m.ServiceType
	v.MessageID = m.MessageID
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	v.DestAddr, err = m.Dest.wire()
	return err
}

func (m *CancelSm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.CancelSM)
	if !ok {
		return mismatch(m, w)
	}
	m.ServiceType = v.ServiceType
	m.MessageID = v.MessageID
	m.Source = addressOf(v.SourceAddr)
	m.Dest = addressOf(v.DestAddr)
	return nil
}

// ReplaceSm is the body of replace_sm.
type ReplaceSm struct {
	MessageID            string
	Source               Address
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	DefaultMsgID         uint8
	Message              []byte
}

func (m *ReplaceSm) toWire(w wire.PDU) error {
	v, ok := w.(*wire.ReplaceSM)
	if !ok {
		return mismatch(m, w)
	}
	v.MessageID = m.MessageID
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	v.ScheduleDeliveryTime = m.ScheduleDeliveryTime
	v.ValidityPeriod = m.ValidityPeriod
	v.RegisteredDelivery = m.RegisteredDelivery
	// replace_sm has no data_coding field
	return setMessage(&v.Message, 0, m.DefaultMsgID, m.Message)
}

func (m *ReplaceSm) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.ReplaceSM)
	if !ok {
		return mismatch(m, w)
	}
	m.MessageID = v.MessageID
	m.Source = addressOf(v.SourceAddr)
	m.ScheduleDeliveryTime = v.ScheduleDeliveryTime
	m.ValidityPeriod = v.ValidityPeriod
	m.RegisteredDelivery = v.RegisteredDelivery
	var err error
	_, m.DefaultMsgID, m.Message, err = messageOf(&v.Message)
	return err
}

// AlertNotification is the body of alert_notification.
type AlertNotification struct {
	Source  Address
	Esme    Address
	Options Options
}

func (m *AlertNotification) toWire(w wire.PDU) error {
	v, ok := w.(*wire.AlertNotification)
	if !ok {
		return mismatch(m, w)
	}
	var err error
	if v.SourceAddr, err = m.Source.wire(); err != nil {
		return err
	}
	if v.EsmeAddr, err = m.Esme.wire(); err != nil {
		return err
	}
	m.Options.toWire(v)
	return nil
}

func (m *AlertNotification) fromWire(w wire.PDU) error {
	v, ok := w.(*wire.AlertNotification)
	if !ok {
		return mismatch(m, w)
	}
	m.Source = addressOf(v.SourceAddr)
	m.Esme = addressOf(v.EsmeAddr)
	m.Options = optionsOf(v.OptionalParameters)
	return nil
}
