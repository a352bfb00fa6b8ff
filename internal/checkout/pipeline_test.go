package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInfo() Info {
	return Info{Name: "Ayesha", Contact: "03001234567", Address: "123 Mall Rd", PostalCode: "54000"}
}

func TestInfo_Complete(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Info)
		want   bool
	}{
		"all fields":          {mutate: func(*Info) {}, want: true},
		"missing name":        {mutate: func(i *Info) { i.Name = "" }, want: false},
		"blank contact":       {mutate: func(i *Info) { i.Contact = "   " }, want: false},
		"blank address":       {mutate: func(i *Info) { i.Address = "\t" }, want: false},
		"missing postal code": {mutate: func(i *Info) { i.PostalCode = "" }, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			info := validInfo()
			tc.mutate(&info)
			assert.Equal(t, tc.want, info.Complete())
		})
	}
}

func TestPipeline_ZeroValueStartsCollectingInfo(t *testing.T) {
	var p Pipeline
	assert.Equal(t, StateCollectingInfo, p.Current())
	assert.False(t, p.Ready())
}

func TestPipeline_ProceedRequiresCompleteInfo(t *testing.T) {
	p := New()
	p.SetInfo(Info{Name: "Ayesha", Contact: "0300", Address: "  ", PostalCode: "54000"})

	assert.False(t, p.Proceed())
	assert.Equal(t, StateCollectingInfo, p.Current())

	assert.True(t, p.SetInfo(validInfo()))
	assert.True(t, p.Proceed())
	assert.Equal(t, StateCollectingPayment, p.Current())
}

func TestPipeline_ProceedRevalidatesDirectStateMutation(t *testing.T) {
	p := New()
	assert.True(t, p.SetInfo(validInfo()))
	p.Info.Address = ""

	assert.False(t, p.Proceed())
	assert.Equal(t, StateCollectingInfo, p.Current())
}

func TestPipeline_AttachProofOnlyDuringPayment(t *testing.T) {
	p := New()
	assert.False(t, p.AttachProof("data:image/png;base64,AAAA"))
	assert.Empty(t, p.Proof)

	p.SetInfo(validInfo())
	p.Proceed()
	assert.False(t, p.AttachProof("   "))
	assert.True(t, p.AttachProof("data:image/png;base64,AAAA"))
	assert.True(t, p.Ready())
}

func TestPipeline_SetInfoRefusedAfterFirstStep(t *testing.T) {
	p := New()
	p.SetInfo(validInfo())
	p.Proceed()

	assert.False(t, p.SetInfo(Info{Name: "Other"}))
	assert.Equal(t, "Ayesha", p.Info.Name)
}

func TestPipeline_ReadyRevalidatesInfo(t *testing.T) {
	p := New()
	p.SetInfo(validInfo())
	p.Proceed()
	p.AttachProof("proof")

	p.Info.Name = " "
	assert.False(t, p.Ready())
}

func TestPipeline_CloseResetsEverything(t *testing.T) {
	p := New()
	p.SetInfo(validInfo())
	p.Proceed()
	p.AttachProof("proof")

	p.Close()

	assert.Equal(t, New(), p)
	assert.Equal(t, StateCollectingInfo, p.Current())
}
