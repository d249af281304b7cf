/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package httpapi

import (
	"context"
	"net/http"
)

// callerIdentityHeader is the header the host runtime's authentication
// provider is expected to set on every request. Anonymous requests simply
// omit it; internal/identity.Registry.Resolve treats the empty string as
// unauthenticated.
const callerIdentityHeader = "X-Caller-Identity"

type callerIdentityKey struct{}

// withCallerIdentity reads callerIdentityHeader and attaches it to the
// request context: authenticate first, let handlers decide what role is
// needed.
func withCallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), callerIdentityKey{}, r.Header.Get(callerIdentityHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller extracts the identity attached by withCallerIdentity.
func caller(r *http.Request) string {
	id, _ := r.Context().Value(callerIdentityKey{}).(string)
	return id
}
