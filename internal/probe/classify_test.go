package probe

import "testing"

func TestClassifyStatus(t *testing.T) {
	cases := map[int]string{
		0:   ErrorConnection,
		200: "",
		204: "",
		400: ErrorInvalidRequest,
		401: ErrorAuthentication,
		402: ErrorClient,
		403: ErrorPermission,
		404: ErrorNotFound,
		405: ErrorClient,
		412: ErrorClient,
		413: ErrorRequestTooLarge,
		414: ErrorClient,
		428: ErrorClient,
		429: ErrorRateLimit,
		430: ErrorClient,
		499: ErrorClient,
		500: ErrorAPI,
		501: ErrorServer,
		502: ErrorServer,
		503: ErrorServer,
		504: ErrorSocketHangUp,
		505: ErrorServer,
		528: ErrorServer,
		529: ErrorOverloaded,
		599: ErrorServer,
		100: ErrorUnknown,
		301: ErrorUnknown,
		600: ErrorUnknown,
	}
	for code, want := range cases {
		if got := ClassifyStatus(code); got != want {
			t.Fatalf("ClassifyStatus(%d) = %q, want %q", code, got, want)
		}
	}
}
