package storage

import "testing"

func TestBuildProductImagePath(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductImage, PathParams{
		EntityID: "prod123",
		FileName: "front.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "assets/products/prod123/images/front.png"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildBlogCoverPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeBlogCover, PathParams{
		EntityID: "post456",
		FileName: "cover.webp",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "assets/blog/post456/covers/cover.webp"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildSiteAssetPathIgnoresEntityID(t *testing.T) {
	path, err := BuildObjectPath(PurposeSiteAsset, PathParams{
		FileName: "logo.svg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "assets/site/logo.svg"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildObjectPathRejectsUnknownPurpose(t *testing.T) {
	if _, err := BuildObjectPath(AssetPurpose("thumbnail"), PathParams{FileName: "a.png"}); err == nil {
		t.Fatalf("expected error for unknown purpose")
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	_, err := BuildObjectPath(PurposeProductImage, PathParams{
		EntityID: "../bad",
		FileName: "file.png",
	})
	if err == nil {
		t.Fatalf("expected error for invalid segment")
	}
}

func TestBuildObjectPathRejectsTraversalFileName(t *testing.T) {
	_, err := BuildObjectPath(PurposeCategoryIcon, PathParams{
		EntityID: "cat1",
		FileName: "..\\icon.png",
	})
	if err == nil {
		t.Fatalf("expected error for invalid file name")
	}
}
