package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"feststay.app/concierge/internal/http/handler/webhook"
	"feststay.app/concierge/internal/twilio"
)

type fakeConversationService struct {
	reply    string
	received *twilio.InboundMessage
	calls    int
}

func (f *fakeConversationService) HandleMessage(_ context.Context, msg *twilio.InboundMessage) string {
	f.calls++
	f.received = msg
	return f.reply
}

// signForm reproduces the gateway's signing scheme: URL then sorted
// key/value pairs, HMAC-SHA1, base64.
func signForm(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

var _ = Describe("TwilioWebhookHandler", func() {
	const authToken = "test-auth-token"

	var (
		svc      *fakeConversationService
		router   *gin.Engine
		recorder *httptest.ResponseRecorder
	)

	validForm := func() url.Values {
		form := url.Values{}
		form.Set("MessageSid", "SM1234567890")
		form.Set("From", "whatsapp:+447700900123")
		form.Set("Body", "Glastonbury 2026")
		return form
	}

	setup := func(skipValidation bool) {
		gin.SetMode(gin.TestMode)
		svc = &fakeConversationService{reply: "Hello! Which event are you interested in?"}
		validator := twilio.NewSignatureValidator(authToken, skipValidation)
		handler := webhook.NewTwilioWebhookHandler(svc, validator)

		router = gin.New()
		router.POST("/webhook/whatsapp", handler.HandleMessage)
		recorder = httptest.NewRecorder()
	}

	post := func(form url.Values, mutate func(*http.Request)) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
		req.Host = "concierge.feststay.app"
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if mutate != nil {
			mutate(req)
		}
		router.ServeHTTP(recorder, req)
	}

	Context("with signature validation skipped", func() {
		BeforeEach(func() {
			setup(true)
		})

		It("returns 200 with a TwiML body for a valid message", func() {
			post(validForm(), nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("text/xml"))
			Expect(recorder.Body.String()).To(ContainSubstring("<Response><Message>Hello! Which event are you interested in?</Message></Response>"))
			Expect(svc.received.MessageSID).To(Equal("SM1234567890"))
			Expect(svc.received.Body).To(Equal("Glastonbury 2026"))
		})

		It("escapes XML metacharacters in the reply", func() {
			svc.reply = `Rooms <2> cost "£50" & more`
			post(validForm(), nil)

			body := recorder.Body.String()
			Expect(body).To(ContainSubstring("&lt;2&gt;"))
			Expect(body).To(ContainSubstring("&amp;"))
			Expect(body).NotTo(ContainSubstring(`<2>`))
		})

		It("rejects a non-form content type with 400", func() {
			post(validForm(), func(req *http.Request) {
				req.Header.Set("Content-Type", "application/json")
			})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.calls).To(BeZero())
		})

		It("rejects a payload missing MessageSid with 400", func() {
			form := validForm()
			form.Del("MessageSid")
			post(form, nil)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.calls).To(BeZero())
		})

		It("rejects a payload missing From with 400", func() {
			form := validForm()
			form.Del("From")
			post(form, nil)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.calls).To(BeZero())
		})

		It("accepts an empty body with media attached", func() {
			form := validForm()
			form.Set("Body", "")
			form.Set("NumMedia", "2")
			post(form, nil)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(svc.received.MediaCount).To(Equal(2))
		})

		It("rejects a non-numeric NumMedia with 400", func() {
			form := validForm()
			form.Set("NumMedia", "lots")
			post(form, nil)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("with signature validation enforced", func() {
		BeforeEach(func() {
			setup(false)
		})

		It("accepts a correctly signed request", func() {
			form := validForm()
			signature := signForm(authToken, "https://concierge.feststay.app/webhook/whatsapp", form)
			post(form, func(req *http.Request) {
				req.Header.Set("X-Forwarded-Proto", "https")
				req.Header.Set("X-Twilio-Signature", signature)
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(svc.calls).To(Equal(1))
		})

		It("rejects a missing signature with 403", func() {
			post(validForm(), nil)

			Expect(recorder.Code).To(Equal(http.StatusForbidden))
			Expect(svc.calls).To(BeZero())
		})

		It("rejects a tampered payload with 403", func() {
			form := validForm()
			signature := signForm(authToken, "https://concierge.feststay.app/webhook/whatsapp", form)
			form.Set("Body", "something else entirely")
			post(form, func(req *http.Request) {
				req.Header.Set("X-Forwarded-Proto", "https")
				req.Header.Set("X-Twilio-Signature", signature)
			})

			Expect(recorder.Code).To(Equal(http.StatusForbidden))
			Expect(svc.calls).To(BeZero())
		})
	})
})
