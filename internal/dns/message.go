package dns

// Message represents a decoded query or a response under construction.
//
// A message is built fresh per datagram and never mutated afterwards.
// Queries carry up to QDCount questions (the responder only ever inspects
// the first); responses carry no questions and at most one answer.
type Message struct {
	Header    Header
	Questions []Question
	Answers   []ResourceRecord
}

// ParseMessage decodes the header and question section of a query.
//
// Answer, authority, and additional sections are never decoded: the
// responder never reads past the last question, so trailing bytes are
// simply ignored.
func ParseMessage(msg []byte) (Message, error) {
	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Message{}, err
	}
	m := Message{Header: h}
	if h.QDCount > 0 {
		m.Questions = make([]Question, 0, h.QDCount)
	}
	for i := uint16(0); i < h.QDCount; i++ {
		q, err := ParseQuestion(msg, &off)
		if err != nil {
			return Message{}, err
		}
		m.Questions = append(m.Questions, q)
	}
	return m, nil
}

// Marshal serializes a response: the header followed by the answer records.
//
// The question section is never re-encoded; responses from this server
// always carry QDCount=0 regardless of what the query contained. Counts
// are written from the header as stored, the response builder is
// responsible for keeping them consistent with the record slices.
func (m Message) Marshal() ([]byte, error) {
	out := m.Header.Marshal()
	for _, rr := range m.Answers {
		b, err := rr.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
