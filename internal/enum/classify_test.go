package enum

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code int
		text string
		want Classification
	}{
		{
			name: "plain 250 OK",
			code: 250, text: "OK",
			want: ClassValid,
		},
		{
			name: "250 with address echo",
			code: 250, text: "2.1.5 alice@example.test",
			want: ClassValid,
		},
		{
			name: "251 forwarded",
			code: 251, text: "User not local; will forward",
			want: ClassValid,
		},
		{
			name: "252 cannot verify is denylisted despite the code",
			code: 252, text: "Cannot VRFY user, but will accept message",
			want: ClassInvalid,
		},
		{
			name: "other 2xx with ok in text",
			code: 235, text: "ok, continue",
			want: ClassValid,
		},
		{
			name: "other 2xx without ok in text",
			code: 214, text: "Help message",
			want: ClassInvalid,
		},
		{
			name: "2xx wrapper around textual rejection",
			code: 250, text: "2.1.5 Cannot VRFY user, but will accept message",
			want: ClassInvalid,
		},
		{
			name: "250 with unknown in text",
			code: 250, text: "address unknown but ok",
			want: ClassInvalid,
		},
		{
			name: "550 user unknown lacks not-found so stays ambiguous",
			code: 550, text: "User unknown",
			want: ClassAmbiguous,
		},
		{
			name: "550 mentioning user without not-found",
			code: 550, text: "user ambiguous",
			want: ClassAmbiguous,
		},
		{
			name: "550 user not found",
			code: 550, text: "user not found",
			want: ClassInvalid,
		},
		{
			name: "550 without user keyword",
			code: 550, text: "Relaying denied",
			want: ClassInvalid,
		},
		{
			name: "transient 450",
			code: 450, text: "Mailbox busy",
			want: ClassInvalid,
		},
		{
			name: "catch-all 552",
			code: 552, text: "Mailbox full",
			want: ClassInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.code, tc.text); got != tc.want {
				t.Errorf("Classify(%d, %q) = %v, want %v", tc.code, tc.text, got, tc.want)
			}
		})
	}
}
