package model

import "testing"

func TestCreationType_IsValid(t *testing.T) {
	t.Parallel()

	valid := []CreationType{CreationArticle, CreationBlogTitle, CreationImage, CreationResumeReview}
	for _, ct := range valid {
		if !ct.IsValid() {
			t.Errorf("%s should be valid", ct)
		}
	}

	invalid := []CreationType{"", "video", "Article", "blog_title"}
	for _, ct := range invalid {
		if ct.IsValid() {
			t.Errorf("%q should be invalid", ct)
		}
	}
}

func TestCreation_LikedBy(t *testing.T) {
	t.Parallel()

	c := &Creation{Likes: []string{"user-1", "user-2"}}

	if !c.LikedBy("user-1") {
		t.Error("user-1 should be a liker")
	}
	if c.LikedBy("user-3") {
		t.Error("user-3 should not be a liker")
	}

	empty := &Creation{}
	if empty.LikedBy("user-1") {
		t.Error("empty likes should match nobody")
	}
}

func TestPlan_IsPro(t *testing.T) {
	t.Parallel()

	if !PlanPro.IsPro() {
		t.Error("pro plan should report pro")
	}
	if PlanFree.IsPro() {
		t.Error("free plan should not report pro")
	}
	if Plan("premium").IsPro() {
		t.Error("unknown plan should not report pro")
	}
}
