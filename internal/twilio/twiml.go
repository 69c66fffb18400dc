package twilio

import "encoding/xml"

type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// RenderReply wraps text in the gateway's TwiML envelope. encoding/xml
// escapes all five reserved characters in the message body.
func RenderReply(text string) string {
	body, err := xml.Marshal(messagingResponse{Message: text})
	if err != nil {
		// A string field cannot fail to marshal; keep the reply alive anyway.
		return xml.Header + "<Response><Message></Message></Response>"
	}
	return xml.Header + string(body)
}
