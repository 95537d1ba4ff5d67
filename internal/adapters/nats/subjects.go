package natsadapter

import "encoding/hex"

const (
	// StreamName is the JetStream stream holding resolution events.
	StreamName = "LOCATION_EVENTS"
	// SubjectPrefix prefixes every resolution event subject.
	SubjectPrefix = "location.events."
	// SubjectAll matches every resolution event.
	SubjectAll = SubjectPrefix + ">"

	anonymousToken = "_anonymous"
)

// FormSubject returns the subject resolution events of a form are published on.
// IDs made only of ASCII letters, digits and '-' are used as is. Any other ID
// becomes '_' followed by its hex encoding, so distinct IDs never share a subject.
func FormSubject(formID string) string {
	if formID == "" {
		return SubjectPrefix + anonymousToken
	}
	for i := 0; i < len(formID); i++ {
		if !plainTokenByte(formID[i]) {
			return SubjectPrefix + "_" + hex.EncodeToString([]byte(formID))
		}
	}
	return SubjectPrefix + formID
}

func plainTokenByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-'
}
