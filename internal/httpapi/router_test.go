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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/coordinator"
	"github.com/skillcore/coordinator/pkg/skills"
)

const (
	testAdmin   = "admin-1"
	testWorker  = "worker-1"
	testSkillID = "acme/widget-skill"
)

func newTestRouter() http.Handler {
	ctx := context.Background()
	idReg, err := identity.NewRegistry(ctx, []string{testAdmin}, []string{testWorker}, true)
	Expect(err).NotTo(HaveOccurred())
	core := coordinator.New(idReg, 1024*1024, 100, 10)
	return NewRouter(core, []string{"*"}, nil)
}

func doRequest(router http.Handler, method, path, identity string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if identity != "" {
		req.Header.Set(callerIdentityHeader, identity)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("Router", func() {
	var router http.Handler

	BeforeEach(func() {
		router = newTestRouter()
	})

	It("rejects a skill mutation from an anonymous caller", func() {
		rec := doRequest(router, http.MethodPost, "/v1/skills", "", skills.Skill{
			ID:   testSkillID,
			Name: "widget-skill",
		})
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("lets an admin add a skill and a query surface see it", func() {
		rec := doRequest(router, http.MethodPost, "/v1/skills", testAdmin, skills.Skill{
			ID:          testSkillID,
			Name:        "widget-skill",
			Description: "a skill about widgets",
			Files: []skills.SkillFile{
				skills.NewSkillFile("SKILL.md", "# Widget Skill", skills.FileTypeSkillMd),
			},
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = doRequest(router, http.MethodGet, "/v1/skills/"+testSkillID, "", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var got skills.Skill
		Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
		Expect(got.Name).To(Equal("widget-skill"))
	})

	It("rejects a malformed request body with a validation error envelope", func() {
		rec := doRequest(router, http.MethodPost, "/v1/admins", testAdmin, map[string]string{})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		var envelope errorEnvelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &envelope)).To(Succeed())
		Expect(envelope.Kind).To(Equal(apperrors.InvalidArgument))
	})

	It("runs request -> claim -> submit over HTTP end to end", func() {
		doRequest(router, http.MethodPost, "/v1/skills", testAdmin, skills.Skill{
			ID:   testSkillID,
			Name: "widget-skill",
			Files: []skills.SkillFile{
				skills.NewSkillFile("SKILL.md", "# Widget Skill", skills.FileTypeSkillMd),
			},
		})
		doRequest(router, http.MethodPost, "/v1/profile/credential", testAdmin, map[string]string{
			"encrypted_credential": "blob-abc",
		})

		rec := doRequest(router, http.MethodPost, "/v1/analysis-jobs", testAdmin, map[string]string{
			"skill_id": testSkillID,
			"model":    "gpt-5",
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var created map[string]string
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created["job_id"]).NotTo(BeEmpty())

		rec = doRequest(router, http.MethodPost, "/v1/analysis-jobs/claim", testWorker, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = doRequest(router, http.MethodPost, "/v1/analysis-jobs/"+created["job_id"]+"/result", testWorker, map[string]string{
			"analysis_json": `{"ratings":{"overall":4.2,"topics":[],"flags":[]},"primary_category":"productivity","summary":"does widgets well"}`,
		})
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = doRequest(router, http.MethodGet, "/v1/analysis-jobs/"+created["job_id"], "", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var status jobStatusResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
		Expect(status.Status).To(Equal("Completed"))
	})
})
